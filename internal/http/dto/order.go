package dto

import "github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"

type CreateOrderRequest struct {
	CustomerName  string   `json:"customerName" binding:"required"`
	CustomerEmail string   `json:"customerEmail" binding:"required,email"`
	Items         []string `json:"items" binding:"required,min=1"`
}

type CreateOrderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Order   *model.Order `json:"order"`
}
