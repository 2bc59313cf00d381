// Package kafka wraps segmentio/kafka-go with the small surface the service
// needs. The producer marshals events to JSON; the consumer dispatches each
// record to a handler and commits its offset only after the handler
// succeeds.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/concierge-labs/member-qa/pkg/config"
)

// MessageHandler processes one record. Returning an error leaves the offset
// uncommitted so the record is redelivered.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer feeds records from one topic through a MessageHandler as part of
// a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

// NewConsumer creates a consumer-group reader for topic, starting at the
// latest offset.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.ConsumerGroup,
			Topic:       topic,
			MinBytes:    1e3,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start fetches and handles records until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.logger.Debug("record received",
			"partition", msg.Partition, "offset", msg.Offset, "bytes", len(msg.Value))

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("handler failed",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// Close releases the group membership and broker connections.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a record value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var event T
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("decoding kafka record: %w", err)
	}
	return event, nil
}
