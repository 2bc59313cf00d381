package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig shapes the backoff schedule. Zero values fall back to the
// defaults: 3 attempts, 100ms initial delay doubling up to 10s, 10% jitter.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Growth       float64
	Jitter       float64
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Growth <= 0 {
		cfg.Growth = 2
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = 0.1
	}
	return cfg
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping an exponentially
// growing, jittered delay between attempts. It stops early when ctx is
// cancelled and returns the last error once the attempts are spent.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, lastErr)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		wait := jittered(delay, cfg.Jitter)
		logger.Warn("attempt failed, backing off",
			"attempt", attempt, "max_attempts", cfg.MaxAttempts, "delay", wait, "error", lastErr)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Growth)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// jittered spreads d by up to ±fraction of itself.
func jittered(d time.Duration, fraction float64) time.Duration {
	offset := (2*rand.Float64() - 1) * fraction * float64(d)
	return d + time.Duration(offset)
}
