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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/enigma119/uqam-kafka-event-driven-poc/common/logger"
	"github.com/enigma119/uqam-kafka-event-driven-poc/common/otel"
	"github.com/enigma119/uqam-kafka-event-driven-poc/core/config"
	"github.com/enigma119/uqam-kafka-event-driven-poc/core/db"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/handler"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/middleware"
	httprouter "github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/router"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/store"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/tracking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeTracking)
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

	slog.InfoContext(ctx, "tracking service starting",
		"env", cfg.Env,
		"consumer_group", cfg.Broker.ConsumerGroup)

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Broker.DeliveriesStream)

	deliveryStore := store.NewPostgresDeliveryStore(database.Pool())
	trackingService := tracking.NewService(deliveryStore, slog.Default())
	trackingHandler := tracking.NewHandler(trackingService, slog.Default())

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Broker.DeliveriesStream,
		Group:     cfg.Broker.ConsumerGroup,
		Consumer:  cfg.Broker.ConsumerName,
		DLQStream: cfg.Broker.DeliveriesStream + ":dlq",
		BatchSize: cfg.Broker.BatchSize,
		Block:     cfg.Broker.Block,
	}, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	runner := queue.NewRunner(consumer, "tracking-reconciler", trackingHandler.HandleEvent)

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
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	httprouter.SetupCommonRoutes(router)
	httprouter.SetupTrackingRoutes(router, handler.NewTrackingHandler(trackingService))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
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

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}
