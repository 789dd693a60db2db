package model

import "time"

// DeliveryRecord is the durable state owned by the tracking service: one
// record per delivery identifier, created on the first observed event and
// merged on every subsequent one. It is the single source of truth the
// notification service verifies against.
type DeliveryRecord struct {
	DeliveryID   string     `json:"deliveryId"`
	OrderID      string     `json:"orderId"`
	CustomerName string     `json:"customerName"`
	Status       string     `json:"status"`
	Items        []string   `json:"items"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`

	// StatusHistory is append-only: exactly one human-readable entry per
	// processed event, never rewritten or deduplicated.
	StatusHistory []string `json:"statusHistory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
