package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/config"
	"github.com/jwalitptl/scheduling-api/internal/bootstrap"
	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/tracing"
	"github.com/jwalitptl/scheduling-api/pkg/worker"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := bootstrap.NewLogger(cfg.Log, "scheduling-worker")
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName + "-worker",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal(err, "Failed to set up tracing")
	}

	store, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal(err, "Failed to open store")
	}
	defer store.Close()

	broker, err := bootstrap.OpenBroker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(err, "Failed to create message broker")
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(
		store,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			TopicPrefix:   cfg.Messaging.TopicPrefix,
		},
		logger,
		metrics.New(cfg.Server.MetricsPrefix, "outbox_processor", prometheus.DefaultRegisterer),
	)
	if err != nil {
		logger.Fatal(err, "Invalid outbox processor config")
	}
	cleanup := worker.NewOutboxCleanupWorker(store.Outbox(), cfg.Outbox.Retention, time.Hour, logger)

	srv := healthServer(cfg.Server.HealthPort, map[string]handler.Pinger{
		"database": store,
		"broker":   broker,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	logger.Info("Worker started", "health_addr", srv.Addr)

	<-ctx.Done()
	logger.Info("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Health server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error(err, "Failed to flush traces")
	}
}

func healthServer(port int, checks map[string]handler.Pinger) *http.Server {
	engine := gin.New()
	engine.Use(middleware.Recovery())
	handler.NewHandler(checks, nil).RegisterRoutes(&engine.RouterGroup)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
