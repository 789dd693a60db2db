package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/handler"
)

// SetupCommonRoutes registers the health and metrics endpoints every service
// exposes.
func SetupCommonRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func SetupOrderRoutes(router *gin.Engine, orderHandler *handler.OrderHandler) {
	orders := router.Group("/orders")
	{
		orders.GET("", orderHandler.Status)
		orders.POST("", orderHandler.Create)
	}
}

func SetupTrackingRoutes(router *gin.Engine, trackingHandler *handler.TrackingHandler) {
	trackingGroup := router.Group("/tracking")
	{
		trackingGroup.GET("", trackingHandler.List)
		trackingGroup.GET("/:deliveryId", trackingHandler.GetByDeliveryID)
		trackingGroup.GET("/order/:orderId", trackingHandler.GetByOrderID)
	}
}
