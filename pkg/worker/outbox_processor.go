package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"

	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts bounds deliveries per event before it is marked failed.
	RetryAttempts int
	// RetryDelay is the first backoff; it doubles per failed delivery.
	RetryDelay  time.Duration
	TopicPrefix string
}

// OutboxProcessor relays stored domain events to the message broker. Each
// batch is claimed, published and marked inside one transaction so parallel
// workers never deliver the same row twice.
type OutboxProcessor struct {
	store   repository.Store
	broker  messaging.Publisher
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	store repository.Store,
	broker messaging.Publisher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch delivers up to BatchSize due events and returns how many were
// published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	started := p.now()
	defer func() { p.metrics.ObserveOutboxBatch(time.Since(started).Seconds()) }()

	published := 0
	err := p.store.WithTx(ctx, func(tx repository.Tx) error {
		events, err := tx.Outbox().GetPendingEvents(ctx, p.config.BatchSize)
		p.metrics.DatabaseOperation("get_pending_events", err)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			if err := p.processEvent(ctx, tx.Outbox(), event); err != nil {
				return err
			}
			if event.Status == model.OutboxStatusProcessed {
				published++
			}
		}
		return nil
	})
	return published, err
}

// processEvent only returns storage errors; a failed delivery is recorded on
// the event and retried on a later batch.
func (p *OutboxProcessor) processEvent(ctx context.Context, repo repository.OutboxRepository, event *model.OutboxEvent) error {
	msg := messaging.Message{
		Key:     event.AggregateID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
		Headers: map[string]string{
			"event_id":  event.ID.String(),
			"tenant_id": event.TenantID.String(),
		},
	}
	pubErr := p.broker.Publish(ctx, messaging.Topic(p.config.TopicPrefix, event.EventType), msg)
	if pubErr == nil {
		err := repo.MarkProcessed(ctx, event.ID)
		p.metrics.DatabaseOperation("mark_processed", err)
		if err != nil {
			return fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		event.Status = model.OutboxStatusProcessed
		p.metrics.OutboxProcessed()
		return nil
	}

	retryAt := p.nextAttempt(event.RetryCount)
	p.metrics.OutboxFailed(event.EventType, retryAt != nil)
	p.logger.Error(pubErr, "Failed to publish event",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", event.RetryCount+1,
		"final", retryAt == nil,
	)
	err := repo.MarkFailed(ctx, event.ID, pubErr.Error(), retryAt)
	p.metrics.DatabaseOperation("mark_failed", err)
	if err != nil {
		return fmt.Errorf("failed to mark event %s failed: %w", event.ID, err)
	}
	return nil
}

// nextAttempt returns when a failed event may be retried, or nil once the
// attempt budget is spent.
func (p *OutboxProcessor) nextAttempt(retryCount int) *time.Time {
	if retryCount+1 >= p.config.RetryAttempts {
		return nil
	}
	at := p.now().Add(p.config.RetryDelay << retryCount)
	return &at
}
