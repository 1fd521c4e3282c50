package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nanotrace/certification-backend/internal/health"
	"github.com/nanotrace/certification-backend/internal/http/handler"
	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/http/response"
)

const (
	jsonBodyLimit = 1 << 20
	// multipartOverhead covers form boundaries and headers around the file.
	multipartOverhead = 64 << 10
)

type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	CertificateHandler *handler.CertificateHandler
	AdminHandler       *handler.AdminHandler
	Sessions           middleware.SessionResolver
	CORSOrigins        []string
	AdminHideForbidden bool
	SDSMaxUploadBytes  int64
	APIRateLimiter     APIRateLimiterFunc
	AuthRateLimiter    AuthRateLimiterFunc
	Readiness          *health.ProbeRunner
	EnableOTelHTTP     bool
}

type APIRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }

func NewRouter(dep Dependencies) http.Handler {
	var apiLimiter func(http.Handler) http.Handler = dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = passthrough
	}
	var authLimiter func(http.Handler) http.Handler = dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = passthrough
	}
	authenticate := middleware.Authenticate(dep.Sessions)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter)

		// Uploads get their own ceiling; every other route is JSON only.
		r.With(authenticate, middleware.BodyLimit(dep.SDSMaxUploadBytes+multipartOverhead)).
			Put("/certificates/{id}/sds", dep.CertificateHandler.UploadSDS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(jsonBodyLimit))

			r.Get("/verify/{certificate_id}", dep.CertificateHandler.Verify)
			r.With(authLimiter).Post("/auth/register", dep.AuthHandler.Register)
			r.With(authLimiter).Post("/auth/login", dep.AuthHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/auth/logout", dep.AuthHandler.Logout)
				r.Get("/me", dep.AuthHandler.Me)

				r.Post("/certificates", dep.CertificateHandler.Submit)
				r.Get("/certificates", dep.CertificateHandler.ListOwn)
				r.Get("/certificates/{id}", dep.CertificateHandler.Get)

				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.RequireAdmin(dep.AdminHideForbidden))
					r.Get("/certificates", dep.AdminHandler.ListCertificates)
					r.Get("/certificates/pending", dep.AdminHandler.Pending)
					r.Get("/certificates/{id}", dep.AdminHandler.GetCertificate)
					r.Get("/certificates/{id}/audit", dep.AdminHandler.Audit)
					r.Post("/certificates/{id}/approve", dep.AdminHandler.Approve)
					r.Post("/certificates/{id}/reject", dep.AdminHandler.Reject)
					r.Get("/users", dep.AdminHandler.ListUsers)
					r.Get("/users/{id}", dep.AdminHandler.UserDetail)
					r.Get("/stats", dep.AdminHandler.Stats)
				})
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
