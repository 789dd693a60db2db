package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
)

const (
	fieldKey      = "key"
	fieldEnvelope = "event"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name within the group
	DLQStream string        // Dead letter stream for malformed messages
	BatchSize int64         // Number of messages to read per batch
	Block     time.Duration // How long to block waiting for new messages
}

// Message is one delivered stream entry with its parsed envelope.
type Message struct {
	ID       string
	Key      string
	Envelope event.Envelope
	Raw      redis.XMessage
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	logger *slog.Logger
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig, logger *slog.Logger) (*RedisConsumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
		logger: logger,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Consumer groups are just readers, messages live in the stream itself.
	// Starting from "0" instead of "$" means a freshly created group sees
	// everything already in the stream, so nothing is lost across restarts.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Read fetches the next batch of new messages for this consumer group.
// Malformed entries are sent to the dead-letter stream and acked so they are
// never redelivered; they do not surface to the caller.
func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// > = new messages not yet delivered to any member of the group.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   c.cfg.BatchSize,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			parsed, parseErr := ParseMessage(msg)
			if parseErr != nil {
				c.logger.ErrorContext(ctx, "malformed message, sending to DLQ",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				if dlqErr := c.sendDLQ(ctx, msg, parseErr.Error()); dlqErr != nil {
					c.logger.ErrorContext(ctx, "failed to dead-letter message", "error", dlqErr, "raw_message_id", msg.ID)
				}
				continue
			}
			messages = append(messages, parsed)
		}
	}

	if len(messages) > 0 {
		c.logger.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// sendDLQ acks the raw message for this group and re-adds it on the
// dead-letter stream with the parse error attached, preserving auditability
// instead of silently dropping bad events.
func (c *RedisConsumer) sendDLQ(ctx context.Context, msg redis.XMessage, errMsg string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("acking malformed message: %w", err)
	}

	values := make(map[string]any, len(msg.Values)+2)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["error"] = errMsg
	values["origin_stream"] = c.cfg.Stream

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	metrics.EventsDeadLetteredTotal.WithLabelValues(c.cfg.Stream).Inc()
	return nil
}

// ParseMessage extracts the publish key and envelope from a raw stream entry.
func ParseMessage(msg redis.XMessage) (Message, error) {
	rawKey, ok := msg.Values[fieldKey]
	if !ok {
		return Message{}, fmt.Errorf("missing %s field", fieldKey)
	}
	key := fmt.Sprint(rawKey)
	if key == "" {
		return Message{}, fmt.Errorf("empty %s field", fieldKey)
	}

	rawEnv, ok := msg.Values[fieldEnvelope]
	if !ok {
		return Message{}, fmt.Errorf("missing %s field", fieldEnvelope)
	}

	env, err := event.Parse([]byte(fmt.Sprint(rawEnv)))
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:       msg.ID,
		Key:      key,
		Envelope: env,
		Raw:      msg,
	}, nil
}
