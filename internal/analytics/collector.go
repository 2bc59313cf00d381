// Package analytics ships question and refresh events to Kafka, aggregates
// them into running statistics, and persists periodic snapshots.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/concierge-labs/member-qa/pkg/kafka"
)

// Collector forwards events to Kafka one at a time through a buffered
// queue. Track never blocks; events are dropped when the queue is full and
// the drop total is logged at a sampled rate.
type Collector struct {
	producer *kafka.Producer
	queue    chan any
	dropped  atomic.Int64
	logger   *slog.Logger
	done     chan struct{}
}

func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		queue:    make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publish loop and returns immediately. Cancel ctx to
// stop the loop; it drains whatever is still queued before exiting.
func (c *Collector) Start(ctx context.Context) {
	go c.pump(ctx)
	c.logger.Info("analytics collector started", "queue", cap(c.queue))
}

// Track queues an event for delivery without blocking.
func (c *Collector) Track(event any) {
	select {
	case c.queue <- event:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("analytics events dropped", "total", n)
		}
	}
}

// Close blocks until the publish loop has drained and exited. Cancel the
// context passed to Start first.
func (c *Collector) Close() {
	<-c.done
}

func (c *Collector) pump(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case event := <-c.queue:
			c.publish(ctx, event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

// drain publishes queued events after shutdown begins. It uses a fresh
// context so cancellation does not discard events already accepted.
func (c *Collector) drain() {
	published := 0
	for {
		select {
		case event := <-c.queue:
			c.publish(context.Background(), event)
			published++
		default:
			if published > 0 {
				c.logger.Info("analytics queue drained", "events", published)
			}
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.producer.Publish(ctx, kafka.Event{Key: eventKey(event), Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}
