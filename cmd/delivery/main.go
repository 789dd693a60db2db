package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/common/otel"
	"github.com/enigma119/uqam-kafka-event-driven-poc/core/config"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/delivery"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/middleware"
	httprouter "github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/router"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeDelivery)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	metrics.Register()

	slog.InfoContext(ctx, "delivery service starting",
		"env", cfg.Env,
		"consumer_group", cfg.Broker.ConsumerGroup,
		"dwell", cfg.Delivery.Dwell)

	redisOpts, err := redis.ParseURL(cfg.Broker.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Broker.OrdersStream)

	producer := queue.NewRedisProducer(redisClient, cfg.Broker.DeliveriesStream, slog.Default())

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Broker.OrdersStream,
		Group:     cfg.Broker.ConsumerGroup,
		Consumer:  cfg.Broker.ConsumerName,
		DLQStream: cfg.Broker.OrdersStream + ":dlq",
		BatchSize: cfg.Broker.BatchSize,
		Block:     cfg.Broker.Block,
	}, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	orchestrator := delivery.NewOrchestrator(producer, cfg.Delivery.Dwell, slog.Default())
	runner := queue.NewRunner(consumer, "delivery-orchestrator", orchestrator.HandleEvent)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Run(runCtx)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	httprouter.SetupCommonRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	cancelRun()
	runner.Stop()
	if err := <-errCh; err != nil && err != context.Canceled {
		slog.ErrorContext(shutdownCtx, "consumer error during shutdown", "error", err)
	}

	// Flush scheduled delivery.completed emissions before closing the producer.
	if err := orchestrator.Flush(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "in-flight deliveries not flushed", "error", err)
	}

	if err := producer.Close(); err != nil {
		slog.WarnContext(shutdownCtx, "producer close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}
