package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer             string
	JWTAudience           string
	JWTSecret             string
	SessionTTL            time.Duration
	CORSAllowedOrigins    []string
	AuthPasswordMinLength int
	BootstrapAdminEmail   string
	AdminHideForbidden    bool

	AuthRateLimitPerMin  int
	APIRateLimitPerMin   int
	RateLimitRedisPrefix string
	RateLimitFailOpen    bool

	AuthAbuseFreeAttempts int
	AuthAbuseBaseDelay    time.Duration
	AuthAbuseMaxDelay     time.Duration
	AuthAbuseResetAfter   time.Duration

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListCacheEnabled bool
	ListCacheTTL     time.Duration

	CertificateReasonMaxLength int

	AuditRedisStream  string
	AuditKafkaBrokers []string
	AuditKafkaTopic   string

	SDSStorageEnabled   bool
	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOBucket         string
	MinIOUseSSL         bool
	SDSMaxUploadBytes   int64
	SDSAllowedMIMETypes []string

	ReadinessProbeTimeout        time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	localLike := isLocalLikeEnv(env)

	cfg := &Config{
		Env:                        env,
		HTTPPort:                   getEnv("HTTP_PORT", "8080"),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		JWTIssuer:                  getEnv("JWT_ISSUER", "nanotrace"),
		JWTAudience:                getEnv("JWT_AUDIENCE", "nanotrace-api"),
		JWTSecret:                  os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthPasswordMinLength:      getEnvInt("AUTH_PASSWORD_MIN_LENGTH", 8),
		BootstrapAdminEmail:        strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		AdminHideForbidden:         getEnvBool("ADMIN_HIDE_FORBIDDEN", true),
		AuthRateLimitPerMin:        getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:         getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisPrefix:       getEnv("RATE_LIMIT_REDIS_PREFIX", "nanotrace:rl"),
		RateLimitFailOpen:          getEnvBool("RATE_LIMIT_FAIL_OPEN", true),
		AuthAbuseFreeAttempts:      getEnvInt("AUTH_ABUSE_FREE_ATTEMPTS", 5),
		RedisEnabled:               getEnvBool("REDIS_ENABLED", false),
		RedisAddr:                  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    getEnvInt("REDIS_DB", 0),
		ListCacheEnabled:           getEnvBool("LIST_CACHE_ENABLED", true),
		CertificateReasonMaxLength: getEnvInt("CERTIFICATE_REASON_MAX_LENGTH", 1000),
		AuditRedisStream:           strings.TrimSpace(os.Getenv("AUDIT_REDIS_STREAM")),
		AuditKafkaBrokers:          splitCSV(os.Getenv("AUDIT_KAFKA_BROKERS")),
		AuditKafkaTopic:            getEnv("AUDIT_KAFKA_TOPIC", "nanotrace.certificate-audit"),
		SDSStorageEnabled:          getEnvBool("SDS_STORAGE_ENABLED", false),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:             os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:             os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:                getEnv("MINIO_BUCKET", "safety-data-sheets"),
		MinIOUseSSL:                getEnvBool("MINIO_USE_SSL", !localLike),
		SDSMaxUploadBytes:          int64(getEnvInt("SDS_MAX_UPLOAD_BYTES", 10<<20)),
		SDSAllowedMIMETypes:        splitCSV(getEnv("SDS_ALLOWED_MIME_TYPES", "application/pdf,text/plain")),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "nanotrace-certification"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", !localLike),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", !localLike),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", !localLike),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SESSION_TTL", "12h", &cfg.SessionTTL},
		{"AUTH_ABUSE_BASE_DELAY", "2s", &cfg.AuthAbuseBaseDelay},
		{"AUTH_ABUSE_MAX_DELAY", "5m", &cfg.AuthAbuseMaxDelay},
		{"AUTH_ABUSE_RESET_AFTER", "30m", &cfg.AuthAbuseResetAfter},
		{"LIST_CACHE_TTL", "30s", &cfg.ListCacheTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > (7*24*time.Hour) {
		errs = append(errs, "SESSION_TTL must be between 1s and 7d")
	}
	if c.AuthPasswordMinLength < 1 {
		errs = append(errs, "AUTH_PASSWORD_MIN_LENGTH must be >= 1")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.AuthAbuseFreeAttempts < 0 {
		errs = append(errs, "AUTH_ABUSE_FREE_ATTEMPTS must be >= 0")
	}
	if c.AuthAbuseBaseDelay <= 0 || c.AuthAbuseMaxDelay < c.AuthAbuseBaseDelay {
		errs = append(errs, "AUTH_ABUSE_BASE_DELAY must be > 0 and <= AUTH_ABUSE_MAX_DELAY")
	}
	if c.CertificateReasonMaxLength <= 0 {
		errs = append(errs, "CERTIFICATE_REASON_MAX_LENGTH must be > 0")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.AuditRedisStream != "" && !c.RedisEnabled {
		errs = append(errs, "AUDIT_REDIS_STREAM requires REDIS_ENABLED=true")
	}
	if len(c.AuditKafkaBrokers) > 0 && strings.TrimSpace(c.AuditKafkaTopic) == "" {
		errs = append(errs, "AUDIT_KAFKA_TOPIC is required when AUDIT_KAFKA_BROKERS is set")
	}
	if c.ListCacheEnabled && c.ListCacheTTL <= 0 {
		errs = append(errs, "LIST_CACHE_TTL must be > 0 when LIST_CACHE_ENABLED=true")
	}
	if c.SDSStorageEnabled {
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			errs = append(errs, "MINIO_ENDPOINT and MINIO_BUCKET are required when SDS_STORAGE_ENABLED=true")
		}
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when SDS_STORAGE_ENABLED=true")
		}
		if c.SDSMaxUploadBytes <= 0 {
			errs = append(errs, "SDS_MAX_UPLOAD_BYTES must be > 0")
		}
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if !isLocalLikeEnv(c.Env) {
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * outside local environments")
				break
			}
		}
		if c.SDSStorageEnabled && !c.MinIOUseSSL {
			errs = append(errs, "MINIO_USE_SSL must be true outside local environments")
		}
		if c.OTELLogLevel == "debug" {
			errs = append(errs, "OTEL_LOG_LEVEL=debug is not allowed outside local environments")
		}
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
