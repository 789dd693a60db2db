package tracking

import (
	"context"
	"log/slog"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

// Handler adapts the reconciliation service to the deliveries-stream consumer.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, logger: log}
}

func (h *Handler) HandleEvent(ctx context.Context, msg queue.Message) error {
	switch msg.Envelope.EventType {
	case event.TypeDeliveryStarted, event.TypeDeliveryCompleted:
	default:
		h.logger.DebugContext(ctx, "event ignored", "event_type", msg.Envelope.EventType)
		return nil
	}

	var payload event.DeliveryPayload
	if err := msg.Envelope.Decode(&payload); err != nil {
		return err
	}

	_, err := h.service.Upsert(ctx, payload)
	return err
}
