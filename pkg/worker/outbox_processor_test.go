package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	topics []string
	msgs   []messaging.Message
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, msg messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.msgs = append(r.msgs, msg)
	return nil
}

func seedEvent(t *testing.T, store *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	event, err := model.NewOutboxEvent(eventType, uuid.New(), uuid.New(), map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), event))
	return event
}

func newProcessor(t *testing.T, store *memory.Store, pub messaging.Publisher, m *metrics.Metrics) *OutboxProcessor {
	t.Helper()
	p, err := NewOutboxProcessor(store, pub, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Minute,
		TopicPrefix:   "scheduling",
	}, logger.Nop(), m)
	require.NoError(t, err)
	return p
}

func TestProcessBatchPublishesInOrder(t *testing.T) {
	store := memory.NewStore()
	first := seedEvent(t, store, model.EventAppointmentBooked)
	seedEvent(t, store, model.EventAppointmentStatusChanged)

	pub := &recordingPublisher{}
	m := metrics.New("test", "worker", prometheus.NewRegistry())
	p := newProcessor(t, store, pub, m)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "scheduling.appointment.booked", pub.topics[0])
	assert.Equal(t, first.AggregateID.String(), pub.msgs[0].Key)
	assert.Equal(t, first.ID.String(), pub.msgs[0].Headers["event_id"])
	assert.JSONEq(t, `{"hello":"world"}`, string(pub.msgs[0].Payload))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsProcessed))

	for _, e := range store.Events() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
		assert.NotNil(t, e.ProcessedAt)
	}

	n, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, model.EventAppointmentBooked)
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := newProcessor(t, store, pub, nil)

	clock := time.Now()
	p.now = func() time.Time { return clock }

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].RetryAt)
	assert.WithinDuration(t, clock.Add(time.Minute), *events[0].RetryAt, time.Millisecond)

	// Not due yet.
	pending, err := store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Nil(t, p.nextAttempt(1))
	require.NoError(t, store.Outbox().MarkFailed(context.Background(), events[0].ID, "forced", nil))
	assert.Equal(t, model.OutboxStatusFailed, store.Events()[0].Status)
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	_, err := NewOutboxProcessor(memory.NewStore(), &recordingPublisher{}, OutboxProcessorConfig{}, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestOutboxCleanupRemovesOldProcessed(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(t, store, model.EventAppointmentBooked)
	require.NoError(t, store.Outbox().MarkProcessed(context.Background(), event.ID))

	w := NewOutboxCleanupWorker(store.Outbox(), -time.Minute, time.Hour, logger.Nop())
	w.cleanup(context.Background())
	assert.Empty(t, store.Events())
}
