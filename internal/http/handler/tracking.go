package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/dto"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/store"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/tracking"
)

type TrackingHandler struct {
	service tracking.Service
}

func NewTrackingHandler(service tracking.Service) *TrackingHandler {
	return &TrackingHandler{service: service}
}

func (h *TrackingHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.service.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list deliveries", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "failed to list deliveries"})
		return
	}

	c.JSON(http.StatusOK, dto.DeliveryListResponse{
		Success:    true,
		Count:      len(records),
		Deliveries: records,
	})
}

func (h *TrackingHandler) GetByDeliveryID(c *gin.Context) {
	ctx := c.Request.Context()
	deliveryID := c.Param("deliveryId")

	record, err := h.service.GetByDeliveryID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Delivery not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get delivery", "error", err, "delivery_id", deliveryID)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "failed to get delivery"})
		return
	}

	c.JSON(http.StatusOK, dto.DeliveryResponse{Success: true, Delivery: record})
}

func (h *TrackingHandler) GetByOrderID(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("orderId")

	record, err := h.service.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Delivery not found for order"})
			return
		}
		slog.ErrorContext(ctx, "failed to get delivery by order", "error", err, "order_id", orderID)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "failed to get delivery"})
		return
	}

	c.JSON(http.StatusOK, dto.DeliveryResponse{Success: true, Delivery: record})
}
