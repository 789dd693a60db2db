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
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/middleware"
	httprouter "github.com/enigma119/uqam-kafka-event-driven-poc/internal/http/router"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/metrics"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/notification"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/queue"
	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/tracking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeNotification)
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

	mockMode := !cfg.Brevo.Enabled()
	slog.InfoContext(ctx, "notification service starting",
		"env", cfg.Env,
		"consumer_group", cfg.Broker.ConsumerGroup,
		"mock_mode", mockMode)

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

	var mailer notification.Mailer
	if mockMode {
		mailer = notification.NewMockMailer(slog.Default())
	} else {
		mailer = notification.NewBrevoMailer(cfg.Brevo, slog.Default())
	}

	verifier := tracking.NewClient(cfg.Notification.TrackingBaseURL)
	notificationService := notification.NewService(verifier, mailer, cfg.Notification, mockMode, slog.Default())

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

	runner := queue.NewRunner(consumer, "notification-dispatcher", notificationService.HandleEvent)

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

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}
