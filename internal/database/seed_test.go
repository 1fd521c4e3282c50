package database

import (
	"fmt"
	"testing"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DatabaseURL: fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", t.Name())}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestSeedPromotesExistingBootstrapAdmin(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&domain.User{Email: "root@example.com", PasswordHash: "x"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	dry, err := SeedDryRun(db, "root@example.com")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !dry.AdminPromoted || dry.Noop {
		t.Fatalf("expected dry run to report pending promotion: %+v", dry)
	}
	var u domain.User
	if err := db.Where("email = ?", "root@example.com").First(&u).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.IsAdmin {
		t.Fatal("dry run must not promote")
	}

	report, err := Seed(db, "root@example.com")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !report.AdminFound || !report.AdminPromoted || report.Users != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if err := db.Where("email = ?", "root@example.com").First(&u).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !u.IsAdmin {
		t.Fatal("expected bootstrap admin promoted")
	}

	again, err := Seed(db, "root@example.com")
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if !again.Noop {
		t.Fatalf("expected second seed to be a noop: %+v", again)
	}
}

func TestSeedMissingBootstrapAdminIsNoop(t *testing.T) {
	db := openTestDB(t)
	report, err := Seed(db, "nobody@example.com")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.AdminFound || !report.Noop {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestPromoteAdmin(t *testing.T) {
	db := openTestDB(t)
	if err := PromoteAdmin(db, "ghost@example.com"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found, got %v", err)
	}
	if err := db.Create(&domain.User{Email: "ops@example.com", PasswordHash: "x"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := PromoteAdmin(db, " ops@example.com "); err != nil {
		t.Fatalf("promote: %v", err)
	}
	var u domain.User
	if err := db.First(&u, "email = ?", "ops@example.com").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if !u.IsAdmin {
		t.Fatal("expected admin flag set")
	}
}
