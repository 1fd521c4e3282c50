package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nanotrace/certification-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "nanotrace-certification"

type AppMetrics struct {
	authLoginCounter         metric.Int64Counter
	authRegisterCounter      metric.Int64Counter
	authLogoutCounter        metric.Int64Counter
	authReqDuration          metric.Float64Histogram
	sessionValidationCounter metric.Int64Counter
	certificateLifecycle     metric.Int64Counter
	certificateOpDuration    metric.Float64Histogram
	auditSinkCounter         metric.Int64Counter
	listCacheCounter         metric.Int64Counter
	listPageSize             metric.Float64Histogram
	rateLimitDecisionCounter metric.Int64Counter
	rateLimitRetryAfter      metric.Float64Histogram
	abuseGuardCounter        metric.Int64Counter
	abuseGuardCooldown       metric.Float64Histogram
	storageOperationCounter  metric.Int64Counter
	healthCheckResultCounter metric.Int64Counter
	healthCheckDuration      metric.Float64Histogram
	databaseStartupCounter   metric.Int64Counter
	databaseStartupDuration  metric.Float64Histogram
	repositoryOpsCounter     metric.Int64Counter
	toolCommandRuns          metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	latencyBuckets := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: "auth.request.duration"}, latencyBuckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: "certificate.operation.duration"}, latencyBuckets),
		),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var firstErr error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create counter %s: %w", name, err)
		}
		return c
	}
	hist := func(name, unit, desc string) metric.Float64Histogram {
		opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		h, err := meter.Float64Histogram(name, opts...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create histogram %s: %w", name, err)
		}
		return h
	}

	m := &AppMetrics{
		authLoginCounter:         counter("auth.login.attempts", "Login attempts by outcome"),
		authRegisterCounter:      counter("auth.register.attempts", "Registration attempts by outcome"),
		authLogoutCounter:        counter("auth.logout.attempts", "Logout attempts by outcome"),
		authReqDuration:          hist("auth.request.duration", "s", "Duration of auth operations in seconds"),
		sessionValidationCounter: counter("auth.session.validation.events", "Bearer session validation outcomes"),
		certificateLifecycle:     counter("certificate.lifecycle.events", "Certificate submit/approve/reject outcomes"),
		certificateOpDuration:    hist("certificate.operation.duration", "s", "Duration of certificate operations in seconds"),
		auditSinkCounter:         counter("audit.sink.publish.events", "Audit sink publish outcomes"),
		listCacheCounter:         counter("certificate.list.cache.events", "Certificate list cache outcomes"),
		listPageSize:             hist("certificate.list.page_size", "", "Requested page size for list endpoints"),
		rateLimitDecisionCounter: counter("http.rate_limit.decisions", "Rate limiter decisions"),
		rateLimitRetryAfter:      hist("http.rate_limit.retry_after", "s", "Retry-after duration for throttled requests"),
		abuseGuardCounter:        counter("auth.abuse_guard.events", "Login abuse guard outcomes"),
		abuseGuardCooldown:       hist("auth.abuse_guard.cooldown", "s", "Cooldown returned by the login abuse guard"),
		storageOperationCounter:  counter("storage.operation.events", "Object storage operation outcomes"),
		healthCheckResultCounter: counter("health.check.results", "Health dependency check results"),
		healthCheckDuration:      hist("health.check.duration", "s", "Duration of health dependency checks"),
		databaseStartupCounter:   counter("database.startup.events", "Database connect/migrate/seed outcomes"),
		databaseStartupDuration:  hist("database.startup.duration", "s", "Duration of database startup phases"),
		repositoryOpsCounter:     counter("repository.operations", "Repository operation outcomes"),
		toolCommandRuns:          counter("tool.command.runs", "CLI tool command runs"),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRegister(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authRegisterCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogout(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRequestDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		))
	}
}

func RecordSessionValidation(ctx context.Context, outcome string) {
	if m := currentMetrics(); m != nil {
		m.sessionValidationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordCertificateOperation records outcome and latency for a certificate engine operation.
func RecordCertificateOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.certificateLifecycle.Add(ctx, 1, attrs)
	m.certificateOpDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordAuditSinkPublish(ctx context.Context, sink, outcome string) {
	if m := currentMetrics(); m != nil {
		m.auditSinkCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("sink", sink),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordListCacheEvent(ctx context.Context, namespace, outcome string) {
	if m := currentMetrics(); m != nil {
		m.listCacheCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordListPageSize(ctx context.Context, endpoint string, pageSize int) {
	if m := currentMetrics(); m != nil {
		m.listPageSize.Record(ctx, float64(pageSize), metric.WithAttributes(attribute.String("endpoint", endpoint)))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	if m := currentMetrics(); m != nil {
		m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
			attribute.String("mode", mode),
		))
	}
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	if m := currentMetrics(); m != nil {
		m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
	}
}

func RecordAuthAbuseGuardEvent(ctx context.Context, action, outcome string) {
	if m := currentMetrics(); m != nil {
		m.abuseGuardCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthAbuseCooldown(ctx context.Context, cooldown time.Duration) {
	if m := currentMetrics(); m != nil {
		m.abuseGuardCooldown.Record(ctx, cooldown.Seconds())
	}
}

func RecordStorageOperation(ctx context.Context, operation, outcome string) {
	if m := currentMetrics(); m != nil {
		m.storageOperationCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	if m := currentMetrics(); m != nil {
		m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
	}
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	if m := currentMetrics(); m != nil {
		m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
	}
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	if m := currentMetrics(); m != nil {
		m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	if m := currentMetrics(); m != nil {
		m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		))
	}
}
