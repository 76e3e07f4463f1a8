package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduling-api/config"
	"github.com/jwalitptl/scheduling-api/internal/bootstrap"
	"github.com/jwalitptl/scheduling-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	availabilityHandler "github.com/jwalitptl/scheduling-api/internal/handler/availability"
	calendarHandler "github.com/jwalitptl/scheduling-api/internal/handler/calendar"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/router"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	appointmentService "github.com/jwalitptl/scheduling-api/internal/service/appointment"
	availabilityService "github.com/jwalitptl/scheduling-api/internal/service/availability"
	calendarService "github.com/jwalitptl/scheduling-api/internal/service/calendar"
	conflictService "github.com/jwalitptl/scheduling-api/internal/service/conflict"
	recurrenceService "github.com/jwalitptl/scheduling-api/internal/service/recurrence"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := bootstrap.NewLogger(cfg.Log, "scheduling-api")
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal(err, "failed to set up tracing")
	}

	// Initialize storage
	store, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal(err, "failed to open store")
	}
	defer store.Close()

	week, err := scheduling.ParseWeekConvention(cfg.Scheduling.WeekStart)
	if err != nil {
		logger.Fatal(err, "invalid week start")
	}
	location, err := cfg.Scheduling.Location()
	if err != nil {
		logger.Fatal(err, "invalid scheduling timezone")
	}

	m := metrics.New(cfg.Server.MetricsPrefix, "scheduling", prometheus.DefaultRegisterer)

	// Initialize services
	calendarSvc := calendarService.NewService(store.Calendar(), store.Resources(), week,
		calendarService.WithMetrics(m),
		calendarService.WithLogger(logger),
		calendarService.WithCacheTTL(cfg.Cache.CalendarTTL),
	)
	conflictSvc := conflictService.NewService(store.Appointments(), m)
	appointmentSvc := appointmentService.NewService(store, calendarSvc, conflictSvc, m, logger)
	recurrenceSvc := recurrenceService.NewService(store, calendarSvc, appointmentSvc, cfg.Scheduling.MaxOccurrences, m, logger)
	availabilitySvc := availabilityService.NewService(calendarSvc, store, availabilityService.Config{
		Granularity:   cfg.Scheduling.GranularityMinutes,
		HorizonDays:   cfg.Scheduling.HorizonDays,
		HidePastSlots: cfg.Scheduling.HidePastSlots,
		Location:      location,
	}, m)

	if err := middleware.SetupValidation(); err != nil {
		logger.Fatal(err, "failed to register validators")
	}

	// Setup router
	health := handler.NewHandler(map[string]handler.Pinger{"database": store}, nil)
	r := router.NewRouter(health, []router.Handler{
		availabilityHandler.NewHandler(availabilitySvc),
		calendarHandler.NewHandler(calendarSvc),
		appointmentHandler.NewHandler(appointmentSvc, conflictSvc, calendarSvc, recurrenceSvc),
	}, router.RouterConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		RateLimit:      rateLimit(cfg.RateLimit),
		RateBurst:      cfg.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORSConfig:     middleware.DefaultCORSConfig(),
		Tenant: middleware.TenantConfig{
			Secret: cfg.JWT.Secret,
			Claim:  cfg.JWT.TenantClaim,
		},
		MetricsPrefix: cfg.Server.MetricsPrefix,
		Logger:        logger,
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error(err, "failed to flush traces")
	}

	logger.Info("server exited properly")
}

func rateLimit(cfg config.RateLimitConfig) rate.Limit {
	if !cfg.Enabled {
		return 0
	}
	return rate.Limit(cfg.RequestsPerSecond)
}
