package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/observability"

	"gorm.io/gorm"
)

type SeedReport struct {
	AdminEmail    string `json:"admin_email,omitempty"`
	AdminFound    bool   `json:"admin_found"`
	AdminPromoted bool   `json:"admin_promoted"`
	Users         int64  `json:"users"`
	Certificates  int64  `json:"certificates"`
	Noop          bool   `json:"noop"`
}

// Seed promotes the bootstrap admin when that account already exists.
func Seed(db *gorm.DB, bootstrapAdminEmail string) (*SeedReport, error) {
	return seed(db, bootstrapAdminEmail, false)
}

// SeedDryRun reports what Seed would change without writing.
func SeedDryRun(db *gorm.DB, bootstrapAdminEmail string) (*SeedReport, error) {
	return seed(db, bootstrapAdminEmail, true)
}

func seed(db *gorm.DB, bootstrapAdminEmail string, dryRun bool) (*SeedReport, error) {
	start := time.Now()
	ctx := context.Background()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{AdminEmail: strings.TrimSpace(bootstrapAdminEmail)}
	err := db.Transaction(func(tx *gorm.DB) error {
		if report.AdminEmail != "" {
			var u domain.User
			err := tx.Where("email = ?", report.AdminEmail).First(&u).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
			case err != nil:
				return err
			default:
				report.AdminFound = true
				if !u.IsAdmin {
					report.AdminPromoted = true
					if !dryRun {
						if err := tx.Model(&u).Update("is_admin", true).Error; err != nil {
							return fmt.Errorf("promote bootstrap admin: %w", err)
						}
					}
				}
			}
		}
		if err := tx.Model(&domain.User{}).Count(&report.Users).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Certificate{}).Count(&report.Certificates).Error
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report.Noop = !report.AdminPromoted
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

// PromoteAdmin grants the admin capability to an existing account.
func PromoteAdmin(db *gorm.DB, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	tx := db.Model(&domain.User{}).Where("email = ?", email).Update("is_admin", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
