package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
)

// Handler processes one decoded message. Returning an error leaves the
// message uncommitted so the group redelivers it after a rebalance.
type Handler[T any] func(ctx context.Context, value T) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer decodes JSON messages from one topic into T.
type Consumer[T any] struct {
	reader       messageReader
	handler      Handler[T]
	fetchBackoff time.Duration
	logger       *slog.Logger
	skipped      atomic.Int64
}

// NewConsumer joins the configured consumer group on topic, starting from
// the newest offset when the group has none.
func NewConsumer[T any](cfg config.KafkaConfig, topic string, handler Handler[T]) *Consumer[T] {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	}), topic, handler)
}

func newConsumer[T any](r messageReader, topic string, handler Handler[T]) *Consumer[T] {
	return &Consumer[T]{
		reader:       r,
		handler:      handler,
		fetchBackoff: time.Second,
		logger:       slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled and closes the reader on return.
// Messages that do not decode as T are committed and counted in Skipped so
// they cannot stall the partition.
func (c *Consumer[T]) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-time.After(c.fetchBackoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		var value T
		if err := json.Unmarshal(msg.Value, &value); err != nil {
			c.skipped.Add(1)
			c.logger.Warn("skipping undecodable message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			c.commit(ctx, msg)
			continue
		}
		if err := c.handler(ctx, value); err != nil {
			c.logger.Error("handler failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		c.commit(ctx, msg)
	}
}

// Skipped returns how many messages failed to decode.
func (c *Consumer[T]) Skipped() int64 {
	return c.skipped.Load()
}

func (c *Consumer[T]) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
	}
}
