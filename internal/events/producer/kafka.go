// Package producer publishes domain events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"coolmath-pro/backend/internal/events"
)

// Producer emits domain events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	events.Emitter
	// Close releases resources (e.g. the Kafka writer). Safe to call if already closed.
	Close() error
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a Kafka producer that writes domain events to the given topic.
// brokers and topic must be non-empty. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka producer: topic is empty")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}, nil
}

// Emit serializes the event as JSON and writes it to the Kafka topic, keyed by
// device key so events for one device stay ordered within a partition.
func (p *KafkaProducer) Emit(ctx context.Context, event *events.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var key []byte
	if event.DeviceKey != "" {
		key = []byte(event.DeviceKey)
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, kafka.Message{Key: key, Value: payload}); err != nil {
		slog.Error("events: kafka emit failed", "error", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
