package model

import "time"

// Order is owned by the order service and immutable after the order.created
// event is emitted. Status is stamped CREATED once and never mutated here.
type Order struct {
	OrderID       string    `json:"orderId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Items         []string  `json:"items"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
