package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/observability"
)

// SessionJanitor removes expired sessions.
type SessionJanitor interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

const sessionCleanupInterval = 15 * time.Minute

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Kafka         *kgo.Client
	Sessions      SessionJanitor
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	kafka *kgo.Client,
	sessions SessionJanitor,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Kafka:         kafka,
		Sessions:      sessions,
	}
}

// Run serves HTTP until ctx is cancelled and then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.runSessionJanitor(janitorCtx)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	stopJanitor()
	return errors.Join(serveErr, a.Shutdown())
}

func (a *App) runSessionJanitor(ctx context.Context) {
	if a.Sessions == nil {
		return
	}
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sessions.CleanupExpiredSessions(ctx)
			if err != nil {
				a.Logger.WarnContext(ctx, "session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.InfoContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

// Shutdown drains HTTP first, then flushes telemetry, then closes clients.
func (a *App) Shutdown() error {
	totalTimeout := a.Config.ShutdownTimeout
	if totalTimeout <= 0 {
		totalTimeout = 20 * time.Second
	}
	totalCtx, totalCancel := context.WithTimeout(context.Background(), totalTimeout)
	defer totalCancel()

	var errs []error
	httpTimeout := a.Config.ShutdownHTTPDrainTimeout
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	httpCtx, httpCancel := context.WithTimeout(totalCtx, httpTimeout)
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
		errs = append(errs, err)
	}
	httpCancel()

	if a.Observability != nil {
		obsTimeout := a.Config.ShutdownObservabilityTimeout
		if obsTimeout <= 0 {
			obsTimeout = 8 * time.Second
		}
		obsCtx, obsCancel := context.WithTimeout(totalCtx, obsTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
			errs = append(errs, err)
		}
		obsCancel()
	}

	if a.Kafka != nil {
		a.Kafka.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
