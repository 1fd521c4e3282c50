package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.User{}, &domain.Certificate{}, &domain.AuditEvent{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustCreateUser(t *testing.T, repo UserRepository, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "hash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustCreateCertificate(t *testing.T, repo CertificateRepository, ownerID uint, product string) *domain.Certificate {
	t.Helper()
	c := &domain.Certificate{
		CertificateID: fmt.Sprintf("cert-%s-%d", strings.ReplaceAll(product, " ", "-"), ownerID),
		ProductName:   product,
		MaterialType:  "TiO2",
		Supplier:      "Acme",
		Status:        domain.CertificateStatusPending,
		OwnerID:       ownerID,
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("create certificate %s: %v", product, err)
	}
	return c
}
