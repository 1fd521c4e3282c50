package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs command metrics on client once per process.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(client)
		if err != nil {
			logger.Warn("redis observability instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis observability instrumentation enabled")
	})
}

type redisMetricsHook struct {
	cmdTotal   metric.Int64Counter
	cmdLatency metric.Float64Histogram
}

func newRedisMetricsHook(client redis.UniversalClient) (*redisMetricsHook, error) {
	meter := otel.Meter(meterName)

	cmdTotal, err := meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands executed by status"))
	if err != nil {
		return nil, err
	}
	cmdLatency, err := meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"))
	if err != nil {
		return nil, err
	}
	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Redis pool saturation ratio (used_conns / total_conns)"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		stats := client.PoolStats()
		if stats != nil && stats.TotalConns > 0 {
			used := stats.TotalConns - stats.IdleConns
			observer.ObserveFloat64(saturation, clampRatio(float64(used)/float64(stats.TotalConns)))
		}
		return nil
	}, saturation)
	if err != nil {
		return nil, err
	}
	return &redisMetricsHook{cmdTotal: cmdTotal, cmdLatency: cmdLatency}, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, strings.ToLower(cmd.Name()), err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, "pipeline", err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, command string, err error, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", redisCommandStatus(err)),
	)
	h.cmdTotal.Add(ctx, 1, attrs)
	h.cmdLatency.Record(ctx, d.Seconds(), attrs)
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
