package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/concierge-labs/member-qa/pkg/kafka"
	"github.com/concierge-labs/member-qa/pkg/resilience"
)

// BatchCollector accumulates events and ships them to Kafka in bulk,
// whenever the batch fills or the flush interval elapses. A batch that
// still fails after retries is dropped; losing analytics is preferred over
// unbounded buffering.
type BatchCollector struct {
	producer *kafka.Producer
	interval time.Duration
	size     int
	logger   *slog.Logger
	done     chan struct{}

	mu      sync.Mutex
	pending []kafka.Event
}

func NewBatchCollector(producer *kafka.Producer, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		producer: producer,
		interval: flushInterval,
		size:     batchSize,
		pending:  make([]kafka.Event, 0, batchSize),
		logger:   slog.Default().With("component", "analytics-batch"),
		done:     make(chan struct{}),
	}
}

// Start launches the flush loop and returns immediately. Cancel ctx to stop
// it; a final flush then runs with its own short deadline.
func (b *BatchCollector) Start(ctx context.Context) {
	go b.loop(ctx)
	b.logger.Info("analytics batch collector started",
		"batch_size", b.size,
		"flush_interval", b.interval,
	)
}

// Track adds an event to the batch. Filling the batch triggers an immediate
// asynchronous flush.
func (b *BatchCollector) Track(event any) {
	b.mu.Lock()
	b.pending = append(b.pending, kafka.Event{Key: eventKey(event), Value: event})
	full := len(b.pending) >= b.size
	b.mu.Unlock()

	if full {
		go b.flush(context.Background())
	}
}

// Close blocks until the flush loop has exited. Cancel the context passed
// to Start first.
func (b *BatchCollector) Close() {
	<-b.done
}

func (b *BatchCollector) loop(ctx context.Context) {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.flush(ctx)
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			b.flush(final)
			cancel()
			return
		}
	}
}

// take swaps the pending slice for an empty one and returns it.
func (b *BatchCollector) take() []kafka.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make([]kafka.Event, 0, b.size)
	return batch
}

func (b *BatchCollector) flush(ctx context.Context) {
	batch := b.take()
	if len(batch) == 0 {
		return
	}

	err := resilience.Retry(ctx, "analytics-flush", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}, func() error {
		return b.producer.PublishBatch(ctx, batch)
	})
	if err != nil {
		b.logger.Error("batch flush failed, events dropped",
			"events", len(batch),
			"error", err,
		)
		return
	}
	b.logger.Debug("batch flushed", "events", len(batch))
}
