package notification_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/enigma119/uqam-kafka-event-driven-poc/core/config"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/notification"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

// Mock StatusVerifier
type mockVerifier struct {
	getStatusFn func(ctx context.Context, deliveryID string) (string, error)
	calls       int
}

func (m *mockVerifier) GetDeliveryStatus(ctx context.Context, deliveryID string) (string, error) {
	m.calls++
	if m.getStatusFn != nil {
		return m.getStatusFn(ctx, deliveryID)
	}
	return event.StatusDelivered, nil
}

// Mock Mailer
type mockMailer struct {
	sendFn func(ctx context.Context, msg notification.ConfirmationMessage) error
	sent   []notification.ConfirmationMessage
}

func (m *mockMailer) SendDeliveryConfirmation(ctx context.Context, msg notification.ConfirmationMessage) error {
	m.sent = append(m.sent, msg)
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

var _ = Describe("NotificationService", func() {
	var (
		svc      *notification.Service
		verifier *mockVerifier
		mailer   *mockMailer
		cfg      config.NotificationConfig
		ctx      context.Context
		payload  event.DeliveryPayload
	)

	newService := func(mockMode bool) *notification.Service {
		return notification.NewService(verifier, mailer, cfg, mockMode, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		verifier = &mockVerifier{}
		mailer = &mockMailer{}
		cfg = config.NotificationConfig{
			MaxAttempts: 5,
			RetryDelay:  time.Millisecond,
		}

		completedAt := time.Now().UTC()
		payload = event.DeliveryPayload{
			DeliveryID:    "DLV-a1b2c3d4",
			OrderID:       "a1b2c3d4-0000",
			CustomerName:  "Alice",
			CustomerEmail: "alice@example.com",
			Status:        event.StatusDelivered,
			CompletedAt:   &completedAt,
		}
	})

	Describe("Notify", func() {
		It("verifies once and dispatches on immediate success", func() {
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(result.NotificationType).To(Equal("email"))
			Expect(result.Recipient).To(Equal("Alice"))
			Expect(result.DeliveryID).To(Equal("DLV-a1b2c3d4"))
			Expect(verifier.calls).To(Equal(1))
			Expect(mailer.sent).To(HaveLen(1))
			Expect(mailer.sent[0].RecipientEmail).To(Equal("alice@example.com"))
		})

		It("retries verification until the record shows DELIVERED", func() {
			verifier.getStatusFn = func(ctx context.Context, deliveryID string) (string, error) {
				if verifier.calls < 3 {
					return "", errors.New("delivery not yet tracked")
				}
				return event.StatusDelivered, nil
			}
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(verifier.calls).To(Equal(3))
			Expect(mailer.sent).To(HaveLen(1))
		})

		It("dispatches anyway after exhausting verification attempts", func() {
			verifier.getStatusFn = func(ctx context.Context, deliveryID string) (string, error) {
				return "", errors.New("delivery not yet tracked")
			}
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(verifier.calls).To(Equal(5))
			Expect(mailer.sent).To(HaveLen(1))
		})

		It("keeps retrying while the record is not yet DELIVERED", func() {
			verifier.getStatusFn = func(ctx context.Context, deliveryID string) (string, error) {
				return event.StatusInTransit, nil
			}
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(verifier.calls).To(Equal(5))
		})

		It("skips verification entirely when configured", func() {
			cfg.SkipVerification = true
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(verifier.calls).To(BeZero())
			Expect(mailer.sent).To(HaveLen(1))
		})

		It("reports mock mode in the result", func() {
			svc = newService(true)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeTrue())
			Expect(result.MockMode).To(BeTrue())
		})

		It("folds mailer failures into the result", func() {
			mailer.sendFn = func(ctx context.Context, msg notification.ConfirmationMessage) error {
				return errors.New("smtp unavailable")
			}
			svc = newService(false)

			result := svc.Notify(ctx, payload)

			Expect(result.Success).To(BeFalse())
			Expect(result.Error).To(ContainSubstring("smtp unavailable"))
		})
	})

	Describe("HandleEvent", func() {
		It("dispatches on delivery.completed", func() {
			svc = newService(false)
			env, err := event.New(event.TypeDeliveryCompleted, payload)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.HandleEvent(ctx, queue.Message{ID: "1-0", Key: payload.DeliveryID, Envelope: env})).To(Succeed())
			Expect(mailer.sent).To(HaveLen(1))
		})

		It("ignores delivery.started", func() {
			svc = newService(false)
			env, err := event.New(event.TypeDeliveryStarted, payload)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.HandleEvent(ctx, queue.Message{ID: "1-0", Key: payload.DeliveryID, Envelope: env})).To(Succeed())
			Expect(mailer.sent).To(BeEmpty())
			Expect(verifier.calls).To(BeZero())
		})

		It("never returns an error for a failed dispatch", func() {
			mailer.sendFn = func(ctx context.Context, msg notification.ConfirmationMessage) error {
				return errors.New("smtp unavailable")
			}
			svc = newService(false)
			env, err := event.New(event.TypeDeliveryCompleted, payload)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.HandleEvent(ctx, queue.Message{ID: "1-0", Key: payload.DeliveryID, Envelope: env})).To(Succeed())
		})
	})
})

var _ = Describe("MockMailer", func() {
	It("always succeeds without touching the network", func() {
		mailer := notification.NewMockMailer(nil)

		err := mailer.SendDeliveryConfirmation(context.Background(), notification.ConfirmationMessage{
			RecipientName:  "Alice",
			RecipientEmail: "alice@example.com",
			DeliveryID:     "DLV-a1b2c3d4",
			OrderStatus:    event.StatusDelivered,
		})

		Expect(err).NotTo(HaveOccurred())
	})
})
