package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"

	"github.com/nanotrace/certification-backend/internal/app"
	"github.com/nanotrace/certification-backend/internal/audit"
	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/database"
	"github.com/nanotrace/certification-backend/internal/health"
	"github.com/nanotrace/certification-backend/internal/http/handler"
	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/http/router"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/repository"
	"github.com/nanotrace/certification-backend/internal/security"
	"github.com/nanotrace/certification-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideMinIOClient,
	provideKafkaClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(repository.NewStore)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	provideAuditPublisher,
	provideListCacheStore,
	provideLoginGuard,
	provideSDSStorage,
	service.NewCertificateService,
	service.NewAuthService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.CertificateServiceInterface), new(*service.CertificateService)),
	wire.Bind(new(middleware.SessionResolver), new(*service.AuthService)),
	wire.Bind(new(app.SessionJanitor), new(*service.AuthService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewCertificateHandler,
	provideAdminHandler,
	provideAPIRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

type MigrationRunner struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *slog.Logger
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db, logger: observability.NewBootstrapLogger(cfg)}
}

// Run applies the schema and promotes the bootstrap admin when configured.
func (m *MigrationRunner) Run() (*database.SeedReport, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	report, err := database.Seed(m.db, m.cfg.BootstrapAdminEmail)
	if err != nil {
		return nil, err
	}
	m.logger.Info("migration complete", "admin_promoted", report.AdminPromoted)
	return report, nil
}

func (m *MigrationRunner) DB() *gorm.DB { return m.db }

func (m *MigrationRunner) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.Seed(db, cfg.BootstrapAdminEmail); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil when Redis is disabled; every consumer
// falls back to an in-process implementation.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideMinIOClient(cfg *config.Config) (*minio.Client, error) {
	if !cfg.SDSStorageEnabled {
		return nil, nil
	}
	return service.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
}

func provideKafkaClient(cfg *config.Config) (*kgo.Client, error) {
	return audit.NewKafkaClient(cfg.AuditKafkaBrokers, cfg.AuditKafkaTopic)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

// provideAuditPublisher always logs and adds the Redis stream and Kafka sinks
// when they are configured.
func provideAuditPublisher(cfg *config.Config, logger *slog.Logger, redisClient redis.UniversalClient, kafka *kgo.Client) *audit.Publisher {
	sinks := []audit.Sink{audit.NewLogSink(logger)}
	if s := audit.NewRedisStreamSink(redisClient, cfg.AuditRedisStream); s != nil {
		sinks = append(sinks, s)
	}
	if s := audit.NewKafkaSink(kafka, cfg.AuditKafkaTopic); s != nil {
		sinks = append(sinks, s)
	}
	return audit.NewPublisher(logger, sinks...)
}

func provideListCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.ListCacheStore {
	switch {
	case !cfg.ListCacheEnabled:
		return service.NewNoopListCacheStore()
	case redisClient != nil:
		return service.NewRedisListCacheStore(redisClient, "")
	default:
		return service.NewInMemoryListCacheStore()
	}
}

func provideLoginGuard(cfg *config.Config, redisClient redis.UniversalClient) service.LoginGuard {
	policy := service.LoginGuardPolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetAfter,
	}
	if redisClient != nil {
		return service.NewRedisLoginGuard(redisClient, "", policy)
	}
	return service.NewInMemoryLoginGuard(policy)
}

func provideSDSStorage(cfg *config.Config, client *minio.Client) service.SDSStorage {
	if client == nil {
		return nil
	}
	return service.NewMinIOSDSStorage(client, cfg.MinIOBucket, cfg.SDSMaxUploadBytes, cfg.SDSAllowedMIMETypes)
}

func provideAdminHandler(cfg *config.Config, certSvc service.CertificateServiceInterface, authSvc service.AuthServiceInterface) *handler.AdminHandler {
	return handler.NewAdminHandler(certSvc, authSvc, cfg.AdminHideForbidden)
}

func newRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, limit int, mode middleware.FailureMode, scope string) *middleware.RateLimiter {
	if redisClient != nil {
		return middleware.NewRateLimiter(
			middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix),
			limit,
			time.Minute,
			mode,
			scope,
		)
	}
	return middleware.NewLocalRateLimiter(limit, time.Minute, scope)
}

func provideAPIRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.APIRateLimiterFunc {
	mode := middleware.FailClosed
	if cfg.RateLimitFailOpen {
		mode = middleware.FailOpen
	}
	return newRateLimiter(cfg, redisClient, cfg.APIRateLimitPerMin, mode, "api").Middleware()
}

// Auth routes always fail closed so a Redis outage cannot unthrottle logins.
func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	return newRateLimiter(cfg, redisClient, cfg.AuthRateLimitPerMin, middleware.FailClosed, "auth").Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	certificateHandler *handler.CertificateHandler,
	adminHandler *handler.AdminHandler,
	sessions middleware.SessionResolver,
	apiRateLimiter router.APIRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:        authHandler,
		CertificateHandler: certificateHandler,
		AdminHandler:       adminHandler,
		Sessions:           sessions,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		AdminHideForbidden: cfg.AdminHideForbidden,
		SDSMaxUploadBytes:  cfg.SDSMaxUploadBytes,
		APIRateLimiter:     apiRateLimiter,
		AuthRateLimiter:    authRateLimiter,
		Readiness:          readiness,
		EnableOTelHTTP:     cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Object storage and Kafka back best-effort features, so their failures do
// not take the instance out of rotation.
func provideReadinessProbeRunner(
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	minioClient *minio.Client,
	kafka *kgo.Client,
) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	}
	if c := health.NewObjectStoreChecker(minioClient, cfg.MinIOBucket); c != nil {
		checkers = append(checkers, health.Optional(c))
	}
	if c := health.NewKafkaChecker(kafka); c != nil {
		checkers = append(checkers, health.Optional(c))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, 0, checkers...)
}
