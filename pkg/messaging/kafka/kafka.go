// Package kafka publishes domain events to Kafka topics, keyed so every event
// of one appointment lands on the same partition.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/scheduling-api/pkg/messaging"
)

const typeHeader = "event_type"

type Config struct {
	// Brokers is a comma separated host:port list.
	Brokers string
	GroupID string
}

type Broker struct {
	brokers []string
	groupID string
	writer  *kafka.Writer
	logger  *zerolog.Logger
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewBroker(cfg Config, logger *zerolog.Logger) (*Broker, error) {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broker{
		brokers: brokers,
		groupID: cfg.GroupID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}, nil
}

func (b *Broker) Publish(ctx context.Context, topic string, msg messaging.Message) error {
	messaging.InjectTrace(ctx, &msg)
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	headers = append(headers, kafka.Header{Key: typeHeader, Value: []byte(msg.Type)})
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("kafka write to %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topic string, handler messaging.Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.brokers,
		GroupID:  b.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		km, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error().Err(err).Str("topic", topic).Msg("kafka read error")
			time.Sleep(time.Second)
			continue
		}

		msg := fromKafka(km)
		spanCtx, span := otel.Tracer("kafka").Start(messaging.ExtractTrace(ctx, msg), "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", km.Topic),
			),
		)
		if err := handler(spanCtx, msg); err != nil {
			span.RecordError(err)
			b.logger.Error().Err(err).Str("topic", topic).Str("type", msg.Type).Msg("message handler failed")
		}
		span.End()
	}
}

func fromKafka(km kafka.Message) messaging.Message {
	msg := messaging.Message{
		Key:     string(km.Key),
		Type:    km.Topic,
		Payload: km.Value,
		Headers: make(map[string]string, len(km.Headers)),
	}
	for _, h := range km.Headers {
		if h.Key == typeHeader {
			msg.Type = string(h.Value)
			continue
		}
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Ping dials the first broker.
func (b *Broker) Ping(ctx context.Context) error {
	dialer := kafka.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (b *Broker) Close() error {
	return b.writer.Close()
}
