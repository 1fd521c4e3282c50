package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nanotrace/certification-backend/internal/audit"
	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/database"
	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/repository"
	"github.com/nanotrace/certification-backend/internal/security"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Record(_ context.Context, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *captureSink) snapshot() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

type fakeSDSStorage struct {
	uploads []string
	deleted []string
	err     error
}

func (f *fakeSDSStorage) Upload(_ context.Context, _ uint, certificateID string, file io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	key := fmt.Sprintf("sds/%s/%d.pdf", certificateID, len(f.uploads)+1)
	f.uploads = append(f.uploads, key)
	return key, nil
}

func (f *fakeSDSStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type serviceFixture struct {
	cfg   *config.Config
	store repository.Store
	sink  *captureSink
	cache *InMemoryListCacheStore
	sds   *fakeSDSStorage
	certs *CertificateService
	auth  *AuthService
}

func testConfig(name string) *config.Config {
	dsn := strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return &config.Config{
		DatabaseURL:                fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", dsn),
		JWTIssuer:                  "nanotrace-test",
		JWTAudience:                "nanotrace-api",
		JWTSecret:                  testJWTSecret,
		SessionTTL:                 time.Hour,
		AuthPasswordMinLength:      8,
		BootstrapAdminEmail:        "root@example.com",
		ListCacheTTL:               time.Minute,
		CertificateReasonMaxLength: 1000,
	}
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	cfg := testConfig(t.Name())
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

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := repository.NewStore(db)
	sink := &captureSink{}
	cache := NewInMemoryListCacheStore()
	sds := &fakeSDSStorage{}
	certs := NewCertificateService(cfg, store, audit.NewPublisher(logger, sink), cache, sds, logger)

	auth, err := NewAuthService(cfg, store, security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret), nil, logger)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	auth.hasher = security.PasswordHasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

	return &serviceFixture{cfg: cfg, store: store, sink: sink, cache: cache, sds: sds, certs: certs, auth: auth}
}

func (fx *serviceFixture) user(t *testing.T, email string, admin bool) domain.Actor {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "unused", IsAdmin: admin}
	if err := fx.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return domain.ActorFromUser(u, "")
}

func (fx *serviceFixture) submit(t *testing.T, owner domain.Actor, product string) *domain.Certificate {
	t.Helper()
	cert, err := fx.certs.Submit(context.Background(), owner.UserID, SubmitInput{
		ProductName:  product,
		MaterialType: "TiO2 nanoparticles",
		Supplier:     "Acme Nano",
	})
	if err != nil {
		t.Fatalf("submit %s: %v", product, err)
	}
	return cert
}
