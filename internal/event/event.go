package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried on the orders and deliveries streams.
const (
	TypeOrderCreated      = "order.created"
	TypeDeliveryStarted   = "delivery.started"
	TypeDeliveryCompleted = "delivery.completed"
)

// Lifecycle statuses. CREATED belongs to orders; the delivery statuses are
// what the tracking service persists.
const (
	StatusCreated   = "CREATED"
	StatusInTransit = "IN_TRANSIT"
	StatusDelivered = "DELIVERED"
)

// Envelope is the wire format for every event:
// {"eventType": string, "timestamp": ISO-8601, "data": object}.
// Events are immutable facts; they are never updated or retracted.
type Envelope struct {
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload in an envelope stamped with the current time.
func New(eventType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	return Envelope{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the envelope's data into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	return nil
}

// Parse validates and unmarshals a raw envelope. An envelope without an
// eventType is malformed and belongs on the dead-letter stream.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("envelope missing eventType")
	}
	return env, nil
}

// OrderPayload is the data projection of an order.created event.
type OrderPayload struct {
	OrderID       string    `json:"orderId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Items         []string  `json:"items"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DeliveryPayload is the data projection of delivery.started and
// delivery.completed events. Items are only carried on the started event,
// and each event carries only the timestamp of its own transition.
type DeliveryPayload struct {
	DeliveryID    string     `json:"deliveryId"`
	OrderID       string     `json:"orderId"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	Items         []string   `json:"items,omitempty"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
