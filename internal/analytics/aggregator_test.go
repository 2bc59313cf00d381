package analytics

import (
	"context"
	"encoding/json"
	"testing"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	return data
}

func TestHandleEventAggregates(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	events := []any{
		QuestionEvent{Type: EventQuestion, Question: "Who wants to visit Japan?", QuestionType: "WHO", Found: true, LatencyMs: 10},
		QuestionEvent{Type: EventQuestion, Question: "Who wants to visit Japan?", QuestionType: "WHO", Found: true, CacheHit: true, LatencyMs: 2},
		QuestionEvent{Type: EventQuestion, Question: "How many cars?", QuestionType: "HOW_MANY", Found: false, LatencyMs: 30},
		RefreshEvent{Type: EventRefresh, Documents: 7, Version: 1, DurationMs: 40},
		RefreshEvent{Type: EventRefresh, Error: "corpus unavailable"},
	}
	for _, e := range events {
		if err := handle(ctx, nil, mustJSON(t, e)); err != nil {
			t.Fatalf("handling event %+v: %v", e, err)
		}
	}

	stats := agg.Stats()
	if stats.TotalQuestions != 3 || stats.Answered != 2 || stats.NotFound != 1 {
		t.Errorf("question totals = %d/%d/%d, want 3/2/1", stats.TotalQuestions, stats.Answered, stats.NotFound)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache counts = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.Refreshes != 1 || stats.RefreshFailures != 1 {
		t.Errorf("refresh counts = %d/%d, want 1/1", stats.Refreshes, stats.RefreshFailures)
	}
	if stats.QuestionsByType["WHO"] != 2 || stats.QuestionsByType["HOW_MANY"] != 1 {
		t.Errorf("QuestionsByType = %v", stats.QuestionsByType)
	}
	if len(stats.TopQuestions) == 0 || stats.TopQuestions[0].Question != "Who wants to visit Japan?" || stats.TopQuestions[0].Count != 2 {
		t.Errorf("TopQuestions = %v", stats.TopQuestions)
	}
	if len(stats.NotFoundQuestions) != 1 || stats.NotFoundQuestions[0].Question != "How many cars?" {
		t.Errorf("NotFoundQuestions = %v", stats.NotFoundQuestions)
	}
}

func TestHandleEventSkipsMalformed(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	if err := handle(ctx, nil, []byte("{not json")); err != nil {
		t.Errorf("malformed JSON should be skipped, got error %v", err)
	}
	if err := handle(ctx, nil, mustJSON(t, map[string]string{"type": "mystery"})); err != nil {
		t.Errorf("unknown event type should be skipped, got error %v", err)
	}
	if stats := agg.Stats(); stats.TotalQuestions != 0 {
		t.Errorf("TotalQuestions = %d after malformed events, want 0", stats.TotalQuestions)
	}
}

func TestStatsLatencyPercentiles(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 100; i++ {
		agg.recordQuestion(QuestionEvent{Question: "q", QuestionType: "GENERIC", Found: true, LatencyMs: int64(i)})
	}

	stats := agg.Stats()
	if stats.AvgLatencyMs != 50.5 {
		t.Errorf("AvgLatencyMs = %v, want 50.5", stats.AvgLatencyMs)
	}
	if stats.P50LatencyMs != 51 {
		t.Errorf("P50LatencyMs = %d, want 51", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs != 96 {
		t.Errorf("P95LatencyMs = %d, want 96", stats.P95LatencyMs)
	}
	if stats.P99LatencyMs != 100 {
		t.Errorf("P99LatencyMs = %d, want 100", stats.P99LatencyMs)
	}
}

func TestLatencyReservoirDropsOlderHalf(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i <= maxLatencySamples; i++ {
		agg.recordQuestion(QuestionEvent{Question: "q", Found: true, LatencyMs: 1})
	}
	if got := len(agg.latencies); got != maxLatencySamples/2+1 {
		t.Errorf("reservoir length = %d, want %d", got, maxLatencySamples/2+1)
	}
}

func TestTopNOrdersByCountThenQuestion(t *testing.T) {
	counts := map[string]int64{"delta": 1, "bravo": 5, "alpha": 3, "charlie": 3}
	got := topN(counts, 3)
	want := []QuestionCount{{"bravo", 5}, {"alpha", 3}, {"charlie", 3}}
	if len(got) != len(want) {
		t.Fatalf("topN returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topN[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
