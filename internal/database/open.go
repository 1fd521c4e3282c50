package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Open connects to Postgres, or to SQLite when DATABASE_URL starts with "sqlite:".
func Open(cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	ctx := context.Background()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	}()

	db, err := gorm.Open(dialector(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.HasPrefix(cfg.DatabaseURL, sqlitePrefix) {
		// SQLite serializes writers; a single connection keeps in-memory databases shared.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	return db, nil
}

func dialector(url string) gorm.Dialector {
	if dsn, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return sqlite.Open(dsn)
	}
	return postgres.Open(url)
}
