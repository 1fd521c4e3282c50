package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nanotrace/certification-backend/internal/config"

	"go.opentelemetry.io/otel/attribute"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	lp, err := InitLogs(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.LoggerProvider = lp

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	rt.MeterProvider = mp

	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	rt.TracerProvider = tp
	return rt, nil
}

// Shutdown flushes providers in reverse start order.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.TracerProvider != nil {
		errs = append(errs, r.TracerProvider.Shutdown(ctx))
	}
	if r.MeterProvider != nil {
		errs = append(errs, r.MeterProvider.Shutdown(ctx))
	}
	if r.LoggerProvider != nil {
		errs = append(errs, r.LoggerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func serviceResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}
