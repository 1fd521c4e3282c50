package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/service"
	servicegomock "github.com/nanotrace/certification-backend/internal/service/gomock"
)

const (
	ownerToken = "owner-token"
	adminToken = "admin-token"
)

var (
	ownerActor = domain.Actor{UserID: 7, Email: "owner@example.com", SessionID: "sess-owner"}
	adminActor = domain.Actor{UserID: 1, Email: "admin@example.com", IsAdmin: true, SessionID: "sess-admin"}
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type handlerFixture struct {
	auth   *servicegomock.MockAuthServiceInterface
	certs  *servicegomock.MockCertificateServiceInterface
	router chi.Router
}

func newHandlerFixture(t *testing.T, hideForbidden bool) *handlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	fx := &handlerFixture{
		auth:  servicegomock.NewMockAuthServiceInterface(ctrl),
		certs: servicegomock.NewMockCertificateServiceInterface(ctrl),
	}
	fx.auth.EXPECT().ResolveSession(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, token string) (domain.Actor, error) {
		switch token {
		case ownerToken:
			return ownerActor, nil
		case adminToken:
			return adminActor, nil
		default:
			return domain.Actor{}, service.ErrInvalidCredentials
		}
	}).AnyTimes()

	authH := NewAuthHandler(fx.auth)
	certH := NewCertificateHandler(fx.certs)
	adminH := NewAdminHandler(fx.certs, fx.auth, hideForbidden)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Get("/verify/{certificate_id}", certH.Verify)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(fx.auth))
			r.Post("/auth/logout", authH.Logout)
			r.Get("/me", authH.Me)
			r.Post("/certificates", certH.Submit)
			r.Get("/certificates", certH.ListOwn)
			r.Get("/certificates/{id}", certH.Get)
			r.Put("/certificates/{id}/sds", certH.UploadSDS)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(hideForbidden))
				r.Get("/certificates", adminH.ListCertificates)
				r.Get("/certificates/pending", adminH.Pending)
				r.Get("/certificates/{id}", adminH.GetCertificate)
				r.Get("/certificates/{id}/audit", adminH.Audit)
				r.Post("/certificates/{id}/approve", adminH.Approve)
				r.Post("/certificates/{id}/reject", adminH.Reject)
				r.Get("/users", adminH.ListUsers)
				r.Get("/users/{id}", adminH.UserDetail)
				r.Get("/stats", adminH.Stats)
			})
		})
	})
	fx.router = r
	return fx
}

func (fx *handlerFixture) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response: %v body=%s", err, rr.Body.String())
	}
	return rr, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	return out
}
