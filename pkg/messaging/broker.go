package messaging

import (
	"context"
	"strings"
)

// Message is one published domain event.
type Message struct {
	// Key groups related messages; brokers that partition use it for ordering.
	Key     string
	Type    string
	Payload []byte
	Headers map[string]string
}

// Handler consumes one message. A returned error is logged by the broker and
// does not stop the subscription.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Broker defines the interface for message brokers
type Broker interface {
	Publisher
	// Subscribe blocks, feeding messages to handler until ctx is done.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Ping(ctx context.Context) error
	Close() error
}

// Topic derives the destination for an event type, e.g. prefix
// "scheduling" and "appointment.booked" give "scheduling.appointment.booked".
func Topic(prefix, eventType string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
