// Package bootstrap builds the process-wide dependencies shared by the API and
// the outbox worker from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/config"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/kafka"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
)

// NewLogger builds the service logger and points zerolog's global logger,
// used by the HTTP middleware, at the same output.
func NewLogger(cfg config.LogConfig, service string) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Console,
	}).WithFields(map[string]interface{}{"service": service})

	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Level))
	log.Logger = *l.Zerolog()
	return l
}

// OpenStore connects the configured storage backend, migrating postgres
// first when auto_migrate is set.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (repository.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		l.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
			version, err := postgres.SchemaVersion(ctx, db)
			if err == nil {
				l.Info("database migrated", "version", version)
			}
		}
		return postgres.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenBroker connects the configured broker behind a circuit breaker.
func OpenBroker(ctx context.Context, cfg *config.Config, l *logger.Logger) (messaging.Broker, error) {
	var (
		broker messaging.Broker
		err    error
	)
	switch strings.ToLower(cfg.Messaging.Driver) {
	case "redis":
		broker, err = redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, l.Zerolog())
	case "kafka":
		broker, err = kafka.NewBroker(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
		}, l.Zerolog())
	default:
		return nil, fmt.Errorf("unsupported messaging driver %q", cfg.Messaging.Driver)
	}
	if err != nil {
		return nil, err
	}

	return messaging.WithBreaker(broker, messaging.BreakerSettings{
		Name:                cfg.Messaging.Driver,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}, l.Zerolog()), nil
}
