package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type breakerBroker struct {
	Broker
	cb *gobreaker.CircuitBreaker
}

// WithBreaker guards Publish with a circuit breaker so an unreachable broker
// fails fast instead of stalling every outbox batch.
func WithBreaker(b Broker, settings BreakerSettings, logger *zerolog.Logger) Broker {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			}
		},
	})
	return &breakerBroker{Broker: b, cb: cb}
}

func (b *breakerBroker) Publish(ctx context.Context, topic string, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Broker.Publish(ctx, topic, msg)
	})
	return err
}
