package tracking_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/store"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/tracking"
)

var _ = Describe("TrackingService", func() {
	var (
		svc tracking.Service
		ctx context.Context

		started   event.DeliveryPayload
		completed event.DeliveryPayload
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = tracking.NewService(store.NewMemoryDeliveryStore(), nil)

		startedAt := time.Now().UTC().Add(-10 * time.Second)
		completedAt := time.Now().UTC()

		started = event.DeliveryPayload{
			DeliveryID:    "DLV-a1b2c3d4",
			OrderID:       "a1b2c3d4-0000",
			CustomerName:  "Alice",
			CustomerEmail: "alice@example.com",
			Items:         []string{"Laptop"},
			Status:        event.StatusInTransit,
			StartedAt:     &startedAt,
		}
		completed = event.DeliveryPayload{
			DeliveryID:    "DLV-a1b2c3d4",
			OrderID:       "a1b2c3d4-0000",
			CustomerName:  "Alice",
			CustomerEmail: "alice@example.com",
			Status:        event.StatusDelivered,
			CompletedAt:   &completedAt,
		}
	})

	Describe("Upsert", func() {
		It("creates a record with a single history entry on first sight", func() {
			rec, err := svc.Upsert(ctx, started)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.DeliveryID).To(Equal("DLV-a1b2c3d4"))
			Expect(rec.Status).To(Equal(event.StatusInTransit))
			Expect(rec.StatusHistory).To(HaveLen(1))
			Expect(rec.StatusHistory[0]).To(HavePrefix("IN_TRANSIT at "))
			Expect(rec.StartedAt).NotTo(BeNil())
			Expect(rec.CompletedAt).To(BeNil())
		})

		It("reaches DELIVERED with two history entries when events arrive in order", func() {
			_, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			rec, err := svc.Upsert(ctx, completed)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Status).To(Equal(event.StatusDelivered))
			Expect(rec.StatusHistory).To(HaveLen(2))
			Expect(rec.StatusHistory[0]).To(HavePrefix("IN_TRANSIT at "))
			Expect(rec.StatusHistory[1]).To(HavePrefix("DELIVERED at "))
			Expect(rec.StartedAt).NotTo(BeNil())
			Expect(rec.CompletedAt).NotTo(BeNil())
		})

		It("regresses to IN_TRANSIT when events arrive in reverse order", func() {
			_, err := svc.Upsert(ctx, completed)
			Expect(err).NotTo(HaveOccurred())

			rec, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			// Last write wins on status; the history shows what happened.
			Expect(rec.Status).To(Equal(event.StatusInTransit))
			Expect(rec.StatusHistory).To(HaveLen(2))
			Expect(rec.StatusHistory[0]).To(HavePrefix("DELIVERED at "))
			Expect(rec.StatusHistory[1]).To(HavePrefix("IN_TRANSIT at "))
			Expect(rec.StartedAt).NotTo(BeNil())
			Expect(rec.CompletedAt).NotTo(BeNil())
		})

		It("never creates a second record for the same delivery", func() {
			_, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Upsert(ctx, completed)
			Expect(err).NotTo(HaveOccurred())

			records, err := svc.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("grows the history on duplicate events", func() {
			_, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			rec, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Status).To(Equal(event.StatusInTransit))
			Expect(rec.StatusHistory).To(HaveLen(2))
		})

		It("keeps startedAt when merging a completed event without one", func() {
			first, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			rec, err := svc.Upsert(ctx, completed)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.StartedAt).To(Equal(first.StartedAt))
		})

		It("keeps items from the started event", func() {
			_, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())

			rec, err := svc.Upsert(ctx, completed)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Items).To(Equal([]string{"Laptop"}))
		})

		It("defaults customerName and items when the first event omits them", func() {
			bare := event.DeliveryPayload{
				DeliveryID: "DLV-bare",
				OrderID:    "bare-order",
				Status:     event.StatusDelivered,
			}

			rec, err := svc.Upsert(ctx, bare)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.CustomerName).To(Equal("Unknown"))
			Expect(rec.Items).To(BeEmpty())
		})

		It("rejects a payload without a delivery id", func() {
			_, err := svc.Upsert(ctx, event.DeliveryPayload{Status: event.StatusDelivered})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("queries", func() {
		BeforeEach(func() {
			_, err := svc.Upsert(ctx, started)
			Expect(err).NotTo(HaveOccurred())
		})

		It("finds a record by delivery id", func() {
			rec, err := svc.GetByDeliveryID(ctx, "DLV-a1b2c3d4")

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.OrderID).To(Equal("a1b2c3d4-0000"))
		})

		It("finds a record by order id", func() {
			rec, err := svc.GetByOrderID(ctx, "a1b2c3d4-0000")

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.DeliveryID).To(Equal("DLV-a1b2c3d4"))
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := svc.GetByDeliveryID(ctx, "DLV-missing")
			Expect(err).To(MatchError(store.ErrNotFound))

			_, err = svc.GetByOrderID(ctx, "missing-order")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})

var _ = Describe("Handler", func() {
	var (
		svc     tracking.Service
		handler *tracking.Handler
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = tracking.NewService(store.NewMemoryDeliveryStore(), nil)
		handler = tracking.NewHandler(svc, nil)
	})

	It("reconciles delivery.started events", func() {
		startedAt := time.Now().UTC()
		env, err := event.New(event.TypeDeliveryStarted, event.DeliveryPayload{
			DeliveryID: "DLV-h1",
			OrderID:    "order-h1",
			Status:     event.StatusInTransit,
			StartedAt:  &startedAt,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(handler.HandleEvent(ctx, queue.Message{ID: "1-0", Key: "DLV-h1", Envelope: env})).To(Succeed())

		rec, err := svc.GetByDeliveryID(ctx, "DLV-h1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Status).To(Equal(event.StatusInTransit))
	})

	It("ignores order.created events", func() {
		env, err := event.New(event.TypeOrderCreated, event.OrderPayload{OrderID: "order-x"})
		Expect(err).NotTo(HaveOccurred())

		Expect(handler.HandleEvent(ctx, queue.Message{ID: "1-0", Key: "order-x", Envelope: env})).To(Succeed())

		records, err := svc.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})
})
