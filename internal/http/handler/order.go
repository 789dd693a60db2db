package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/dto"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/order"
)

type OrderHandler struct {
	service order.Service
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create accepts an order and returns 201 as soon as the order.created event
// is on the stream. Nothing downstream has run yet at that point.
func (h *OrderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}

	created, err := h.service.Create(ctx, order.CreateOrderParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
	})
	if err != nil {
		if errors.Is(err, order.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to create order", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "failed to create order"})
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		Success: true,
		Message: "Order created successfully",
		Order:   created,
	})
}

// Status answers GET /orders with a liveness blob; the service keeps no
// order history of its own.
func (h *OrderHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "order-service",
		"status":    "running",
		"timestamp": time.Now().UTC(),
	})
}
