package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyBroker struct {
	calls int
	err   error
}

func (f *flakyBroker) Publish(context.Context, string, Message) error {
	f.calls++
	return f.err
}

func (f *flakyBroker) Subscribe(context.Context, string, Handler) error { return nil }
func (f *flakyBroker) Ping(context.Context) error                       { return nil }
func (f *flakyBroker) Close() error                                     { return nil }

func TestTopic(t *testing.T) {
	assert.Equal(t, "appointment.booked", Topic("", "appointment.booked"))
	assert.Equal(t, "scheduling.appointment.booked", Topic("scheduling.", "appointment.booked"))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyBroker{err: errors.New("connection refused")}
	b := WithBreaker(inner, BreakerSettings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Hour}, nil)

	ctx := context.Background()
	require.Error(t, b.Publish(ctx, "t", Message{}))
	require.Error(t, b.Publish(ctx, "t", Message{}))

	err := b.Publish(ctx, "t", Message{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyBroker{}
	b := WithBreaker(inner, BreakerSettings{Name: "ok"}, nil)
	require.NoError(t, b.Publish(context.Background(), "t", Message{Type: "x"}))
	assert.Equal(t, 1, inner.calls)
}
