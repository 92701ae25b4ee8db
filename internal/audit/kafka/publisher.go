// Package kafka streams committed audit entries to a topic for downstream
// consumers (SIEM, long-term archive). Delivery is best effort; the ledger
// remains the system of record.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"facegate/internal/ledger"
)

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the entry asynchronously, keyed by actor so one user's
// trail stays ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, e ledger.Entry) {
	value, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encode audit entry", "error", err)
		return
	}
	record := &kgo.Record{Topic: p.topic, Key: []byte(e.ActorID), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish audit entry", "actor_id", e.ActorID, "error", err)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
