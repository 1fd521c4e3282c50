package handler

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/http/response"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthServiceInterface
}

func NewAuthHandler(authSvc service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		observability.EmitRequestAudit(r, observability.RequestAuditInput{
			EventName: "auth.register", Action: "register", Outcome: "failure", Reason: auditReason(err),
		})
		writeServiceError(w, r, err, false)
		return
	}
	observability.EmitRequestAudit(r, observability.RequestAuditInput{
		EventName:   "auth.register",
		ActorUserID: strconv.FormatUint(uint64(user.ID), 10),
		TargetType:  "user",
		TargetID:    strconv.FormatUint(uint64(user.ID), 10),
		Action:      "register",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.authSvc.Authenticate(r.Context(), req.Email, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		observability.EmitRequestAudit(r, observability.RequestAuditInput{
			EventName: "auth.login", Action: "login", Outcome: "failure", Reason: auditReason(err),
		})
		writeServiceError(w, r, err, false)
		return
	}
	observability.EmitRequestAudit(r, observability.RequestAuditInput{
		EventName:   "auth.login",
		ActorUserID: strconv.FormatUint(uint64(result.User.ID), 10),
		Action:      "login",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_at": result.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       result.User,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	if err := h.authSvc.Logout(r.Context(), actor.SessionID); err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	observability.EmitRequestAudit(r, observability.RequestAuditInput{
		EventName:   "auth.logout",
		ActorUserID: strconv.FormatUint(uint64(actor.UserID), 10),
		Action:      "logout",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	user, err := h.authSvc.GetUser(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func auditReason(err error) string {
	var throttled *service.ThrottledError
	switch {
	case errors.As(err, &throttled):
		return "throttled"
	case errors.Is(err, service.ErrValidation):
		return "validation"
	case errors.Is(err, service.ErrConflict):
		return "conflict"
	case errors.Is(err, service.ErrAuthentication):
		return "invalid_credentials"
	default:
		return "internal"
	}
}

// clientIP relies on chi's RealIP having rewritten RemoteAddr upstream.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
