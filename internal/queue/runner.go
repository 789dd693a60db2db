package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
)

// Handler processes one consumed message. A returned error is logged and
// swallowed: the message is acked regardless, so a bad event never stalls the
// stream or triggers a broker-level redelivery storm. Handlers that need
// retries own them internally.
type Handler func(ctx context.Context, msg Message) error

// Runner drives one consumer-group subscription with a single processing
// loop. Each service runs one Runner per subscribed stream.
type Runner struct {
	consumer *RedisConsumer
	handler  Handler
	name     string

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRunner(consumer *RedisConsumer, name string, handler Handler) *Runner {
	return &Runner{
		consumer:  consumer,
		handler:   handler,
		name:      name,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: r.name})
	slog.InfoContext(ctx, "consumer started",
		"stream", r.consumer.cfg.Stream,
		"group", r.consumer.cfg.Group,
		"consumer", r.consumer.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			slog.InfoContext(ctx, "consumer stopping")
			return nil
		default:
			if err := r.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on broker errors
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop signals the runner to stop and waits for the loop to drain.
func (r *Runner) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *Runner) processOneBatch(ctx context.Context) error {
	messages, err := r.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		r.handleOne(ctx, msg)
	}

	return nil
}

func (r *Runner) handleOne(ctx context.Context, msg Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		EventType: logger.Ptr(msg.Envelope.EventType),
	})

	metrics.EventsConsumedTotal.WithLabelValues(
		r.consumer.cfg.Stream,
		r.consumer.cfg.Group,
		msg.Envelope.EventType,
	).Inc()

	if err := r.handleSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "error processing event", "error", err, "key", msg.Key)
	}

	// Ack unconditionally: handler failures are contained, not redelivered.
	if err := r.consumer.Ack(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to ack message", "error", err)
	}
}

func (r *Runner) handleSafe(ctx context.Context, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic recovered in message handler", "panic", rec, "key", msg.Key)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.handler(ctx, msg)
}
