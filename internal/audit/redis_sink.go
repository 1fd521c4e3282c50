package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen = 100_000

// RedisStreamSink appends events to a Redis stream for downstream consumers.
type RedisStreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamSink(client redis.UniversalClient, stream string) *RedisStreamSink {
	if client == nil || stream == "" {
		return nil
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (s *RedisStreamSink) Name() string { return "redis_stream" }

func (s *RedisStreamSink) Record(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"action":         string(ev.Action),
			"certificate_id": ev.CertificateID,
			"payload":        payload,
		},
	}).Err()
}
