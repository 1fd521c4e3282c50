package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/http/response"
)

type contextKey string

const actorContextKey contextKey = "actor"

// SessionResolver turns a bearer token into the actor behind it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (domain.Actor, error)
}

func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			actor, err := resolver.ResolveSession(r.Context(), raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects non-admin actors. With hide set the route answers 404
// so its existence is not disclosed.
func RequireAdmin(hide bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			if !actor.IsAdmin {
				if hide {
					response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
					return
				}
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "admin capability required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorContextKey).(domain.Actor)
	return a, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
