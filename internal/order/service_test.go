package order_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/order"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

// Mock Producer
type mockProducer struct {
	publishFn func(ctx context.Context, key string, env event.Envelope) error
	published []publishedEvent
}

type publishedEvent struct {
	key string
	env event.Envelope
}

func (m *mockProducer) Publish(ctx context.Context, key string, env event.Envelope) error {
	m.published = append(m.published, publishedEvent{key: key, env: env})
	if m.publishFn != nil {
		return m.publishFn(ctx, key, env)
	}
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}

var _ = Describe("OrderService", func() {
	var (
		svc      order.Service
		producer *mockProducer
		ctx      context.Context
		params   order.CreateOrderParams
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = &mockProducer{}
		svc = order.NewService(producer, nil)
		params = order.CreateOrderParams{
			CustomerName:  "Alice",
			CustomerEmail: "alice@example.com",
			Items:         []string{"Laptop", "Mouse"},
		}
	})

	Describe("Create", func() {
		It("returns the order with status CREATED", func() {
			created, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.OrderID).NotTo(BeEmpty())
			Expect(created.Status).To(Equal(event.StatusCreated))
			Expect(created.CustomerName).To(Equal("Alice"))
			Expect(created.Items).To(Equal([]string{"Laptop", "Mouse"}))
			Expect(created.CreatedAt).NotTo(BeZero())
		})

		It("assigns a distinct identifier to every order", func() {
			first, err := svc.Create(ctx, params)
			Expect(err).NotTo(HaveOccurred())

			second, err := svc.Create(ctx, params)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.OrderID).NotTo(Equal(second.OrderID))
		})

		It("publishes one order.created event keyed by the order id", func() {
			created, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(producer.published).To(HaveLen(1))
			Expect(producer.published[0].key).To(Equal(created.OrderID))
			Expect(producer.published[0].env.EventType).To(Equal(event.TypeOrderCreated))

			var payload event.OrderPayload
			Expect(producer.published[0].env.Decode(&payload)).To(Succeed())
			Expect(payload.OrderID).To(Equal(created.OrderID))
			Expect(payload.CustomerEmail).To(Equal("alice@example.com"))
			Expect(payload.Items).To(Equal([]string{"Laptop", "Mouse"}))
		})

		It("fails when publishing fails", func() {
			producer.publishFn = func(ctx context.Context, key string, env event.Envelope) error {
				return errors.New("broker unavailable")
			}

			created, err := svc.Create(ctx, params)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("broker unavailable"))
			Expect(created).To(BeNil())
		})

		Context("with invalid input", func() {
			It("rejects a missing customer name", func() {
				params.CustomerName = ""

				_, err := svc.Create(ctx, params)

				Expect(errors.Is(err, order.ErrInvalidOrder)).To(BeTrue())
				Expect(producer.published).To(BeEmpty())
			})

			It("rejects a missing customer email", func() {
				params.CustomerEmail = ""

				_, err := svc.Create(ctx, params)

				Expect(errors.Is(err, order.ErrInvalidOrder)).To(BeTrue())
			})

			It("rejects an empty item list", func() {
				params.Items = nil

				_, err := svc.Create(ctx, params)

				Expect(errors.Is(err, order.ErrInvalidOrder)).To(BeTrue())
			})

			It("rejects blank items", func() {
				params.Items = []string{"Laptop", ""}

				_, err := svc.Create(ctx, params)

				Expect(errors.Is(err, order.ErrInvalidOrder)).To(BeTrue())
			})
		})
	})
})

var _ queue.Producer = (*mockProducer)(nil)
