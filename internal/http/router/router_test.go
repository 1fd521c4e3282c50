package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nanotrace/certification-backend/internal/audit"
	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/database"
	"github.com/nanotrace/certification-backend/internal/health"
	"github.com/nanotrace/certification-backend/internal/http/handler"
	"github.com/nanotrace/certification-backend/internal/repository"
	"github.com/nanotrace/certification-backend/internal/security"
	"github.com/nanotrace/certification-backend/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		DatabaseURL:                fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		JWTIssuer:                  "nanotrace-test",
		JWTAudience:                "nanotrace-api",
		JWTSecret:                  "abcdefghijklmnopqrstuvwxyz123456",
		SessionTTL:                 time.Hour,
		AuthPasswordMinLength:      8,
		BootstrapAdminEmail:        "admin@example.com",
		AdminHideForbidden:         true,
		CertificateReasonMaxLength: 1000,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db)
	certs := service.NewCertificateService(cfg, store, audit.NewPublisher(logger, audit.NewLogSink(logger)), service.NewNoopListCacheStore(), nil, logger)
	auth, err := service.NewAuthService(cfg, store, security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret), service.NoopLoginGuard{}, logger)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	h := NewRouter(Dependencies{
		AuthHandler:        handler.NewAuthHandler(auth),
		CertificateHandler: handler.NewCertificateHandler(certs),
		AdminHandler:       handler.NewAdminHandler(certs, auth, cfg.AdminHideForbidden),
		Sessions:           auth,
		AdminHideForbidden: cfg.AdminHideForbidden,
		SDSMaxUploadBytes:  1 << 20,
		Readiness:          health.NewProbeRunner(time.Second, 0, health.NewDBChecker(db)),
	})
	return h
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestHandler(t))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "correct-horse", "confirm_password": "correct-horse"}
	if status, env := call(t, srv, http.MethodPost, "/api/v1/auth/register", "", creds); status != http.StatusCreated {
		t.Fatalf("register %s: status %d %+v", email, status, env.Error)
	}
	status, env := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": "correct-horse"})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", email, status)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login payload: %v %s", err, env.Data)
	}
	return data.Token
}

func TestCertificateLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	adminToken := registerAndLogin(t, srv, "admin@example.com")
	ownerToken := registerAndLogin(t, srv, "owner@example.com")

	status, env := call(t, srv, http.MethodPost, "/api/v1/certificates", ownerToken, map[string]string{
		"certificate_id": "NT-2026-0001",
		"product_name":   "Nano TiO2 coating",
		"material_type":  "titanium dioxide",
		"supplier":       "Acme Nano",
	})
	if status != http.StatusCreated {
		t.Fatalf("submit: status %d %+v", status, env.Error)
	}
	var cert struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &cert); err != nil {
		t.Fatalf("decode certificate: %v", err)
	}
	if cert.Status != "pending" {
		t.Fatalf("expected pending, got %q", cert.Status)
	}

	status, _ = call(t, srv, http.MethodGet, "/api/v1/verify/NT-2026-0001", "", nil)
	if status != http.StatusOK {
		t.Fatalf("verify pending: status %d", status)
	}

	approvePath := fmt.Sprintf("/api/v1/admin/certificates/%d/approve", cert.ID)
	if status, _ := call(t, srv, http.MethodPost, approvePath, ownerToken, nil); status != http.StatusNotFound {
		t.Fatalf("expected owner approve to be hidden as 404, got %d", status)
	}
	if status, env := call(t, srv, http.MethodPost, approvePath, adminToken, nil); status != http.StatusOK {
		t.Fatalf("approve: status %d %+v", status, env.Error)
	}
	status, env = call(t, srv, http.MethodPost, approvePath, adminToken, nil)
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected second approve to be INVALID_TRANSITION, got %d %+v", status, env.Error)
	}

	_, env = call(t, srv, http.MethodGet, "/api/v1/verify/NT-2026-0001", "", nil)
	var v struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(env.Data, &v); err != nil || !v.Valid {
		t.Fatalf("expected approved certificate to verify as valid: %s", env.Data)
	}

	status, env = call(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/admin/certificates/%d/audit", cert.ID), adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("audit: status %d", status)
	}
	var trail struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &trail); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(trail.Items) != 2 || trail.Items[0].Action != "submit" || trail.Items[1].Action != "approve" {
		t.Fatalf("unexpected audit trail %+v", trail.Items)
	}

	if status, _ := call(t, srv, http.MethodPost, "/api/v1/auth/logout", ownerToken, nil); status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
	if status, _ := call(t, srv, http.MethodGet, "/api/v1/me", ownerToken, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	if status, _ := call(t, srv, http.MethodGet, "/health/live", "", nil); status != http.StatusOK {
		t.Fatalf("live: status %d", status)
	}
	if status, _ := call(t, srv, http.MethodGet, "/health/ready", "", nil); status != http.StatusOK {
		t.Fatalf("ready: status %d", status)
	}
}

func TestJSONBodyLimit(t *testing.T) {
	h := newTestHandler(t)
	raw, err := json.Marshal(map[string]string{"email": strings.Repeat("a", jsonBodyLimit+1), "password": "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d body=%s", rr.Code, rr.Body.String())
	}
}
