package database

import (
	"context"
	"time"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/observability"

	"gorm.io/gorm"
)

// Models lists every persisted domain type in migration order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Certificate{},
		&domain.AuditEvent{},
		&domain.Session{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	ctx := context.Background()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	}()

	err := db.AutoMigrate(Models()...)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", outcome)
	return err
}
