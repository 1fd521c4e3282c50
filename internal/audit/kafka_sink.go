package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink publishes events keyed by certificate id so one certificate's
// history stays ordered within a partition.
type KafkaSink struct {
	client producer
	topic  string
}

func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

func NewKafkaSink(client *kgo.Client, topic string) *KafkaSink {
	if client == nil {
		return nil
	}
	return &KafkaSink{client: client, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Record(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(ev.CertificateID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(ev.Action)},
		},
	}
	return s.client.ProduceSync(ctx, rec).FirstErr()
}
