package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/nanotrace/certification-backend/internal/observability"
)

// Sink receives audit events after the mutation they describe has committed.
type Sink interface {
	Name() string
	Record(ctx context.Context, ev Event) error
}

// Publisher fans events out to every sink. Sink failures are logged and
// counted; the durable copy lives in the audit table.
type Publisher struct {
	sinks   []Sink
	logger  *slog.Logger
	timeout time.Duration
}

func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Publisher{sinks: active, logger: logger, timeout: 2 * time.Second}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	// Publishing happens after commit; a cancelled request must not drop the event.
	base := context.WithoutCancel(ctx)
	for _, s := range p.sinks {
		sinkCtx, cancel := context.WithTimeout(base, p.timeout)
		err := s.Record(sinkCtx, ev)
		cancel()
		if err != nil {
			observability.RecordAuditSinkPublish(ctx, s.Name(), "error")
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"sink", s.Name(),
				"action", ev.Action,
				"certificate_id", ev.CertificateID,
				"error", err,
			)
			continue
		}
		observability.RecordAuditSinkPublish(ctx, s.Name(), "success")
	}
}

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Record(ctx context.Context, ev Event) error {
	attrs := []any{
		"action", ev.Action,
		"actor_id", ev.ActorID,
		"actor_email", ev.ActorEmail,
		"certificate_id", ev.CertificateID,
		"certificate_ref", ev.CertificateRef,
		"timestamp", ev.Timestamp.Format(time.RFC3339Nano),
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	s.logger.InfoContext(ctx, "certificate.audit", attrs...)
	return nil
}
