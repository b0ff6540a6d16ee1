// Package kafka carries typed JSON messages over segmentio/kafka-go. A
// Producer[T] encodes values of T under a partition key; a Consumer[T]
// decodes them back and hands each one to a Handler[T].
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes values of T to one topic.
type Producer[T any] struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewProducer returns a synchronous, hash-balanced producer for topic.
func NewProducer[T any](cfg config.KafkaConfig, topic string) *Producer[T] {
	return newProducer[T](&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}, topic)
}

func newProducer[T any](w messageWriter, topic string) *Producer[T] {
	return &Producer[T]{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes values in one call, all under key. Nothing is written if
// any value fails to encode.
func (p *Producer[T]) Publish(ctx context.Context, key string, values ...T) error {
	if len(values) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding message for %s: %w", p.topic, err)
		}
		msgs[i] = kafka.Message{Key: []byte(key), Value: data}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("publish failed", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	p.logger.Debug("published", "count", len(msgs))
	return nil
}

// Close flushes pending writes.
func (p *Producer[T]) Close() error {
	return p.writer.Close()
}
