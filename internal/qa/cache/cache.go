// Package cache provides a Redis-backed answer cache keyed by snapshot
// version and normalised question tokens.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/concierge-labs/member-qa/internal/qa"
	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
	"github.com/concierge-labs/member-qa/pkg/redis"
)

// AnswerCache memoises pipeline results in Redis. Keys include the
// snapshot version, so an answer computed against an old snapshot is never
// served after a refresh; Invalidate additionally clears old entries
// eagerly instead of letting them sit out their TTL.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an AnswerCache over an established Redis client.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *AnswerCache {
	return &AnswerCache{client: client, ttl: ttl, logger: logger}
}

// Key derives the cache key for a question against a snapshot version.
// The question is reduced to its token sequence first, so casing and
// punctuation variants of the same question share one entry.
func Key(version uint64, question string) string {
	normalized := strings.Join(tokenizer.Tokenize(question), " ")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", version, normalized)))
	return "answer:" + hex.EncodeToString(sum[:])[:16]
}

// GetOrCompute returns the cached result for the question, computing and
// storing it on a miss. Concurrent misses for the same key compute once.
// Cache failures degrade to a direct compute; they never fail the request.
func (c *AnswerCache) GetOrCompute(ctx context.Context, version uint64, question string, compute func() qa.Result) (qa.Result, bool) {
	key := Key(version, question)
	if result, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return result, true
	}
	c.misses.Add(1)

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result := compute()
		c.store(ctx, key, result)
		return result, nil
	})
	return v.(qa.Result), false
}

func (c *AnswerCache) lookup(ctx context.Context, key string) (qa.Result, bool) {
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("answer cache lookup failed", "key", key, "error", err)
		}
		return qa.Result{}, false
	}
	var result qa.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("answer cache entry corrupt", "key", key, "error", err)
		return qa.Result{}, false
	}
	return result, true
}

func (c *AnswerCache) store(ctx context.Context, key string, result qa.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("answer cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("answer cache store failed", "key", key, "error", err)
	}
}

// Invalidate removes all cached answers, returning how many were deleted.
func (c *AnswerCache) Invalidate(ctx context.Context) (int64, error) {
	return c.client.FlushByPattern(ctx, "answer:*")
}

// Stats reports cache hit and miss counts since process start.
func (c *AnswerCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
