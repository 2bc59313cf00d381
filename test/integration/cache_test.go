// Package integration contains tests that exercise the service's backing
// stores (the Redis answer cache and the PostgreSQL analytics store)
// against real servers. Each test skips itself when its store is
// unreachable, so the suite is safe to run anywhere.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/concierge-labs/member-qa/internal/qa"
	"github.com/concierge-labs/member-qa/internal/qa/cache"
	"github.com/concierge-labs/member-qa/pkg/config"
	"github.com/concierge-labs/member-qa/pkg/redis"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.NewClient(testRedisConfig())
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testRedisConfig() config.RedisConfig {
	return config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		Password: envOrDefault("TEST_REDIS_PASSWORD", ""),
		// DB 15 keeps test keys out of any local development data.
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 5,
		CacheTTL: time.Minute,
	}
}

// newTestCache returns an answer cache over a keyspace cleared of prior
// answer entries.
func newTestCache(t *testing.T, client *redis.Client) *cache.AnswerCache {
	t.Helper()
	answers := cache.New(client, time.Minute, discardLogger())
	if _, err := answers.Invalidate(t.Context()); err != nil {
		t.Fatalf("clearing answer keys: %v", err)
	}
	return answers
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestAnswerCacheMissThenHit verifies that a question is computed once and
// served from Redis afterwards.
func TestAnswerCacheMissThenHit(t *testing.T) {
	client := skipIfNoRedis(t)
	answers := newTestCache(t, client)

	question := fmt.Sprintf("who wants to visit japan %d", time.Now().UnixNano())
	want := qa.Result{
		Answer:          "Layla Kawaguchi",
		Type:            "WHO",
		Found:           true,
		Candidates:      3,
		SnapshotVersion: 1,
	}

	computes := 0
	compute := func() qa.Result {
		computes++
		return want
	}

	got, hit := answers.GetOrCompute(t.Context(), 1, question, compute)
	if hit {
		t.Error("expected a cache miss on first lookup")
	}
	if got != want {
		t.Errorf("first result = %+v, want %+v", got, want)
	}

	got, hit = answers.GetOrCompute(t.Context(), 1, question, compute)
	if !hit {
		t.Error("expected a cache hit on second lookup")
	}
	if got != want {
		t.Errorf("cached result = %+v, want %+v", got, want)
	}
	if computes != 1 {
		t.Errorf("compute ran %d times, want 1", computes)
	}

	hits, misses := answers.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}
}

// TestAnswerCacheKeyNormalization verifies that casing and punctuation
// variants of a question share one cache entry.
func TestAnswerCacheKeyNormalization(t *testing.T) {
	client := skipIfNoRedis(t)
	answers := newTestCache(t, client)

	nonce := time.Now().UnixNano()
	base := fmt.Sprintf("where is sophia going %d", nonce)
	variant := fmt.Sprintf("Where is Sophia going %d???", nonce)

	computes := 0
	compute := func() qa.Result {
		computes++
		return qa.Result{Answer: "Aspen", Type: "WHERE", Found: true, SnapshotVersion: 1}
	}

	answers.GetOrCompute(t.Context(), 1, base, compute)
	got, hit := answers.GetOrCompute(t.Context(), 1, variant, compute)
	if !hit {
		t.Error("expected the punctuation variant to hit the same entry")
	}
	if computes != 1 {
		t.Errorf("compute ran %d times, want 1", computes)
	}
	if got.Answer != "Aspen" {
		t.Errorf("answer = %q, want %q", got.Answer, "Aspen")
	}
}

// TestAnswerCacheVersionIsolation verifies that answers cached against one
// snapshot version are never served for another.
func TestAnswerCacheVersionIsolation(t *testing.T) {
	client := skipIfNoRedis(t)
	answers := newTestCache(t, client)

	question := fmt.Sprintf("when is the trip to london %d", time.Now().UnixNano())

	first, _ := answers.GetOrCompute(t.Context(), 1, question, func() qa.Result {
		return qa.Result{Answer: "March 3", Type: "WHEN", Found: true, SnapshotVersion: 1}
	})
	if first.Answer != "March 3" {
		t.Errorf("answer at version 1 = %q, want %q", first.Answer, "March 3")
	}

	second, hit := answers.GetOrCompute(t.Context(), 2, question, func() qa.Result {
		return qa.Result{Answer: "March 5", Type: "WHEN", Found: true, SnapshotVersion: 2}
	})
	if hit {
		t.Error("expected a miss after the snapshot version changed")
	}
	if second.Answer != "March 5" {
		t.Errorf("answer at version 2 = %q, want %q", second.Answer, "March 5")
	}
}

// TestAnswerCacheInvalidate verifies that Invalidate removes every stored
// answer and later lookups recompute.
func TestAnswerCacheInvalidate(t *testing.T) {
	client := skipIfNoRedis(t)
	answers := newTestCache(t, client)

	nonce := time.Now().UnixNano()
	questions := make([]string, 3)
	for i := range questions {
		questions[i] = fmt.Sprintf("invalidate probe %d %d", nonce, i)
		answers.GetOrCompute(t.Context(), 1, questions[i], func() qa.Result {
			return qa.Result{Answer: "ok", Found: true, SnapshotVersion: 1}
		})
	}

	deleted, err := answers.Invalidate(t.Context())
	if err != nil {
		t.Fatalf("invalidating cache: %v", err)
	}
	if deleted < int64(len(questions)) {
		t.Errorf("deleted %d entries, want at least %d", deleted, len(questions))
	}

	recomputed := false
	_, hit := answers.GetOrCompute(t.Context(), 1, questions[0], func() qa.Result {
		recomputed = true
		return qa.Result{Answer: "ok", Found: true, SnapshotVersion: 1}
	})
	if hit {
		t.Error("expected a miss after invalidation")
	}
	if !recomputed {
		t.Error("expected the answer to be recomputed after invalidation")
	}
}

// TestAnswerCacheTTLExpiry verifies that entries expire after the
// configured TTL.
func TestAnswerCacheTTLExpiry(t *testing.T) {
	client := skipIfNoRedis(t)
	answers := cache.New(client, time.Second, discardLogger())

	question := fmt.Sprintf("how many cabanas %d", time.Now().UnixNano())
	answers.GetOrCompute(t.Context(), 1, question, func() qa.Result {
		return qa.Result{Answer: "two", Type: "HOW_MANY", Found: true, SnapshotVersion: 1}
	})

	time.Sleep(1500 * time.Millisecond)

	_, hit := answers.GetOrCompute(t.Context(), 1, question, func() qa.Result {
		return qa.Result{Answer: "two", Type: "HOW_MANY", Found: true, SnapshotVersion: 1}
	})
	if hit {
		t.Error("expected the entry to expire after its TTL")
	}
}
