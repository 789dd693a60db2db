package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/core/config"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

// StatusVerifier checks the reconciled status of a delivery. Satisfied by
// tracking.Client.
type StatusVerifier interface {
	GetDeliveryStatus(ctx context.Context, deliveryID string) (string, error)
}

// NotificationResult records the outcome of one dispatch attempt. It is
// logged, never published back onto a stream; notification is the terminal
// stage of the pipeline.
type NotificationResult struct {
	Success          bool      `json:"success"`
	NotificationType string    `json:"notificationType"`
	Recipient        string    `json:"recipient"`
	DeliveryID       string    `json:"deliveryId"`
	MockMode         bool      `json:"mockMode"`
	Error            string    `json:"error,omitempty"`
	SentAt           time.Time `json:"sentAt"`
}

// Service reacts to delivery.completed by verifying the tracking record and
// sending a confirmation email. Verification failure never blocks dispatch:
// after the attempts are exhausted the email goes out anyway.
type Service struct {
	verifier StatusVerifier
	mailer   Mailer
	cfg      config.NotificationConfig
	mockMode bool
	logger   *slog.Logger
}

func NewService(verifier StatusVerifier, mailer Mailer, cfg config.NotificationConfig, mockMode bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		verifier: verifier,
		mailer:   mailer,
		cfg:      cfg,
		mockMode: mockMode,
		logger:   log,
	}
}

// HandleEvent is the deliveries-stream handler. Only delivery.completed
// triggers a notification; delivery.started is consumed and ignored so the
// consumer group keeps advancing.
func (s *Service) HandleEvent(ctx context.Context, msg queue.Message) error {
	if msg.Envelope.EventType != event.TypeDeliveryCompleted {
		s.logger.DebugContext(ctx, "event ignored", "event_type", msg.Envelope.EventType)
		return nil
	}

	var payload event.DeliveryPayload
	if err := msg.Envelope.Decode(&payload); err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(payload.DeliveryID),
		OrderID:    logger.Ptr(payload.OrderID),
	})

	result := s.Notify(ctx, payload)
	if !result.Success {
		s.logger.WarnContext(ctx, "notification failed",
			"delivery_id", result.DeliveryID, "recipient", result.Recipient, "error", result.Error)
	}
	return nil
}

// Notify runs verification then dispatch and always produces a result. Errors
// are folded into the result rather than returned, so a failed email is never
// redelivered by the broker.
func (s *Service) Notify(ctx context.Context, payload event.DeliveryPayload) NotificationResult {
	result := NotificationResult{
		NotificationType: "email",
		Recipient:        payload.CustomerName,
		DeliveryID:       payload.DeliveryID,
		MockMode:         s.mockMode,
		SentAt:           time.Now().UTC(),
	}

	if !s.cfg.SkipVerification {
		s.verifyDeliveryStatus(ctx, payload.DeliveryID)
	}

	err := s.mailer.SendDeliveryConfirmation(ctx, ConfirmationMessage{
		RecipientName:  payload.CustomerName,
		RecipientEmail: payload.CustomerEmail,
		DeliveryID:     payload.DeliveryID,
		OrderStatus:    payload.Status,
	})

	mode := "live"
	if s.mockMode {
		mode = "mock"
	}
	if err != nil {
		result.Error = err.Error()
		metrics.NotificationsSentTotal.WithLabelValues(mode, "error").Inc()
		return result
	}

	result.Success = true
	metrics.NotificationsSentTotal.WithLabelValues(mode, "ok").Inc()
	s.logger.InfoContext(ctx, "delivery confirmation dispatched",
		"delivery_id", payload.DeliveryID, "recipient", payload.CustomerEmail, "mock", s.mockMode)
	return result
}

// verifyDeliveryStatus polls the tracking service until the record shows
// DELIVERED or the attempts run out. Exhaustion is logged and dispatch
// proceeds anyway; the email content does not depend on the record.
func (s *Service) verifyDeliveryStatus(ctx context.Context, deliveryID string) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		metrics.VerificationAttemptsTotal.Inc()

		status, err := s.verifier.GetDeliveryStatus(ctx, deliveryID)
		if err == nil && status == event.StatusDelivered {
			s.logger.InfoContext(ctx, "delivery status verified",
				"delivery_id", deliveryID, "attempts", attempt)
			return
		}
		if err != nil {
			s.logger.DebugContext(ctx, "status verification attempt failed",
				"delivery_id", deliveryID, "attempt", attempt, "error", err)
		} else {
			s.logger.DebugContext(ctx, "delivery not yet reconciled",
				"delivery_id", deliveryID, "attempt", attempt, "status", status)
		}

		if attempt < s.cfg.MaxAttempts {
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	s.logger.WarnContext(ctx, "status verification exhausted, dispatching anyway",
		"delivery_id", deliveryID, "attempts", s.cfg.MaxAttempts)
}
