package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concierge-labs/member-qa/pkg/kafka"
)

// maxLatencySamples bounds the latency reservoir; when full, the older
// half is discarded.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQuestions     int64            `json:"total_questions"`
	Answered           int64            `json:"answered"`
	NotFound           int64            `json:"not_found"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	Refreshes          int64            `json:"refreshes"`
	RefreshFailures    int64            `json:"refresh_failures"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	QuestionsByType    map[string]int64 `json:"questions_by_type"`
	TopQuestions       []QuestionCount  `json:"top_questions"`
	NotFoundQuestions  []QuestionCount  `json:"not_found_questions"`
	QuestionsPerMinute float64          `json:"questions_per_minute"`
}

type QuestionCount struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// Aggregator keeps running statistics over question and refresh events.
// Events are fed through the handler returned by HandleEvent, normally
// attached to a Kafka consumer.
type Aggregator struct {
	mu                sync.RWMutex
	totalQuestions    atomic.Int64
	answered          atomic.Int64
	notFound          atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	refreshes         atomic.Int64
	refreshFailures   atomic.Int64
	latencies         []int64
	byType            map[string]int64
	questionCounts    map[string]int64
	notFoundQuestions map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, maxLatencySamples),
		byType:            make(map[string]int64),
		questionCounts:    make(map[string]int64),
		notFoundQuestions: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns the Kafka message handler feeding the aggregator.
// Undecodable events are logged and skipped, never retried.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		var probe struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &probe); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch probe.Type {
		case EventQuestion:
			event, err := kafka.DecodeJSON[QuestionEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode question event", "error", err)
				return nil
			}
			agg.recordQuestion(event)
		case EventRefresh:
			event, err := kafka.DecodeJSON[RefreshEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode refresh event", "error", err)
				return nil
			}
			agg.recordRefresh(event)
		default:
			agg.logger.Warn("unknown analytics event type", "event_type", probe.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordQuestion(event QuestionEvent) {
	a.totalQuestions.Add(1)
	if event.Found {
		a.answered.Add(1)
	} else {
		a.notFound.Add(1)
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		half := len(a.latencies) / 2
		a.latencies = append(a.latencies[:0], a.latencies[half:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.byType[event.QuestionType]++
	a.questionCounts[event.Question]++
	if !event.Found {
		a.notFoundQuestions[event.Question]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordRefresh(event RefreshEvent) {
	if event.Error != "" {
		a.refreshFailures.Add(1)
		return
	}
	a.refreshes.Add(1)
}

// Stats returns a copy of the current aggregate statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQuestions:  a.totalQuestions.Load(),
		Answered:        a.answered.Load(),
		NotFound:        a.notFound.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		Refreshes:       a.refreshes.Load(),
		RefreshFailures: a.refreshFailures.Load(),
		QuestionsByType: make(map[string]int64, len(a.byType)),
	}
	for qtype, count := range a.byType {
		stats.QuestionsByType[qtype] = count
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.TopQuestions = topN(a.questionCounts, 10)
	stats.NotFoundQuestions = topN(a.notFoundQuestions, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QuestionsPerMinute = float64(stats.TotalQuestions) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QuestionCount {
	result := make([]QuestionCount, 0, len(counts))
	for question, count := range counts {
		result = append(result, QuestionCount{Question: question, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Question < result[j].Question
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
