package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/event"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

var ErrInvalidOrder = errors.New("invalid order request")

type CreateOrderParams struct {
	CustomerName  string   `json:"customerName"`
	CustomerEmail string   `json:"customerEmail"`
	Items         []string `json:"items"`
}

type Service interface {
	Create(ctx context.Context, params CreateOrderParams) (*model.Order, error)
}

type service struct {
	producer queue.Producer
	logger   *slog.Logger
}

func NewService(producer queue.Producer, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		producer: producer,
		logger:   logger,
	}
}

// Create assigns a fresh order identifier, stamps CREATED, and publishes one
// order.created event keyed by the order identifier. The order is returned to
// the caller before any downstream consumer has processed the event; there is
// no acknowledgment of downstream processing.
func (s *service) Create(ctx context.Context, params CreateOrderParams) (*model.Order, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderID:       uuid.NewString(),
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		Items:         params.Items,
		Status:        event.StatusCreated,
		CreatedAt:     time.Now().UTC(),
	}

	env, err := event.New(event.TypeOrderCreated, event.OrderPayload{
		OrderID:       order.OrderID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Items:         order.Items,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := s.producer.Publish(ctx, order.OrderID, env); err != nil {
		return nil, fmt.Errorf("publishing order.created: %w", err)
	}

	s.logger.InfoContext(ctx, "order created", "order_id", order.OrderID, "customer", order.CustomerName, "items", len(order.Items))
	return order, nil
}

func validate(params CreateOrderParams) error {
	if params.CustomerName == "" {
		return fmt.Errorf("%w: customerName is required", ErrInvalidOrder)
	}
	if params.CustomerEmail == "" {
		return fmt.Errorf("%w: customerEmail is required", ErrInvalidOrder)
	}
	if len(params.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", ErrInvalidOrder)
	}
	for _, item := range params.Items {
		if item == "" {
			return fmt.Errorf("%w: items must not contain empty entries", ErrInvalidOrder)
		}
	}
	return nil
}
