package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

// Orchestrator drives the per-delivery state machine STARTED -> COMPLETED.
// It emits delivery.started immediately on each consumed order.created and
// schedules the matching delivery.completed after a fixed dwell, without
// blocking the consumer loop for other orders. There is no error state: if
// the deferred emission never happens, the delivery stays IN_TRANSIT from
// downstream's point of view.
type Orchestrator struct {
	producer queue.Producer
	dwell    time.Duration
	logger   *slog.Logger

	// pending tracks in-flight dwell timers so shutdown can flush them.
	pending sync.WaitGroup
}

func NewOrchestrator(producer queue.Producer, dwell time.Duration, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		producer: producer,
		dwell:    dwell,
		logger:   log,
	}
}

// DeriveDeliveryID derives the delivery identifier deterministically from the
// order identifier, so duplicate order.created events for the same order map
// to the same delivery and the tracking merge stays idempotent.
func DeriveDeliveryID(orderID string) string {
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	return "DLV-" + short
}

// HandleEvent is the orders-stream handler. Unrecognized event types are
// skipped at debug level; they are well-formed events that simply aren't for
// this consumer.
func (o *Orchestrator) HandleEvent(ctx context.Context, msg queue.Message) error {
	if msg.Envelope.EventType != event.TypeOrderCreated {
		o.logger.DebugContext(ctx, "event ignored", "event_type", msg.Envelope.EventType)
		return nil
	}

	var order event.OrderPayload
	if err := msg.Envelope.Decode(&order); err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{OrderID: logger.Ptr(order.OrderID)})
	return o.StartDelivery(ctx, order)
}

// StartDelivery emits delivery.started and schedules delivery.completed after
// the dwell. The completed payload is captured immutably here; no lock is
// held across the dwell interval.
func (o *Orchestrator) StartDelivery(ctx context.Context, order event.OrderPayload) error {
	deliveryID := DeriveDeliveryID(order.OrderID)
	ctx = logger.WithLogFields(ctx, logger.LogFields{DeliveryID: logger.Ptr(deliveryID)})

	o.logger.InfoContext(ctx, "delivery initiated", "delivery_id", deliveryID, "order_id", order.OrderID)

	startedAt := time.Now().UTC()
	started, err := event.New(event.TypeDeliveryStarted, event.DeliveryPayload{
		DeliveryID:    deliveryID,
		OrderID:       order.OrderID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Items:         order.Items,
		Status:        event.StatusInTransit,
		StartedAt:     &startedAt,
	})
	if err != nil {
		return err
	}

	if err := o.producer.Publish(ctx, deliveryID, started); err != nil {
		return fmt.Errorf("publishing delivery.started: %w", err)
	}
	o.logger.InfoContext(ctx, "delivery status: IN_TRANSIT", "delivery_id", deliveryID)

	// The consumer's per-message context ends when the handler returns, but
	// the deferred emission must outlive it.
	timerCtx := context.WithoutCancel(ctx)
	o.pending.Add(1)
	time.AfterFunc(o.dwell, func() {
		defer o.pending.Done()
		o.completeDelivery(timerCtx, deliveryID, order)
	})

	return nil
}

func (o *Orchestrator) completeDelivery(ctx context.Context, deliveryID string, order event.OrderPayload) {
	completedAt := time.Now().UTC()
	completed, err := event.New(event.TypeDeliveryCompleted, event.DeliveryPayload{
		DeliveryID:    deliveryID,
		OrderID:       order.OrderID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Status:        event.StatusDelivered,
		CompletedAt:   &completedAt,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "building delivery.completed", "error", err, "delivery_id", deliveryID)
		return
	}

	if err := o.producer.Publish(ctx, deliveryID, completed); err != nil {
		o.logger.ErrorContext(ctx, "publishing delivery.completed", "error", err, "delivery_id", deliveryID)
		return
	}

	o.logger.InfoContext(ctx, "delivery completed", "delivery_id", deliveryID, "order_id", order.OrderID)
}

// Flush waits for in-flight dwell timers to fire, or gives up when the
// context expires. Called on shutdown so scheduled completions are not lost.
func (o *Orchestrator) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
