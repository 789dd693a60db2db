package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
)

// Producer publishes event envelopes on a single stream. The publish key is
// carried on every message: a stream is a single partition, so all events for
// one key are totally ordered, and the key is preserved for consumers and for
// any future partitioning of the stream.
type Producer interface {
	Publish(ctx context.Context, key string, env event.Envelope) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, key string, env event.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			fieldKey:      key,
			fieldEnvelope: string(raw),
		},
	}).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(p.stream, env.EventType).Inc()
	p.logger.InfoContext(ctx, "event published", "event_type", env.EventType, "key", key, "stream", p.stream)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
