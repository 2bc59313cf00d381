// Package resilience wraps outbound calls with fault-tolerance primitives
// such as retries with backoff and a consecutive-failure circuit breaker.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the circuit is open and the
// cool-down has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type circuitState uint8

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreakerConfig controls when the circuit trips and how it recovers.
// Zero values fall back to defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before the circuit opens
	CoolDown         time.Duration // how long the circuit stays open before probing
	HalfOpenProbes   int           // calls allowed through while half-open
}

// CircuitBreaker fails calls fast once a dependency has failed
// FailureThreshold times in a row. After the cool-down a limited number of
// probe calls pass; one success closes the circuit again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    circuitState
	failures int
	openedAt time.Time
	probes   int
}

// NewCircuitBreaker creates a closed breaker named for its log entries.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn unless the circuit is open, recording the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case circuitOpen:
		remaining := cb.cfg.CoolDown - time.Since(cb.openedAt)
		if remaining > 0 {
			return fmt.Errorf("%w: %s (cool-down %v remaining)",
				ErrCircuitOpen, cb.name, remaining.Round(time.Millisecond))
		}
		cb.state = circuitHalfOpen
		cb.probes = 0
		cb.logger.Info("circuit half-open, probing", "cool_down", cb.cfg.CoolDown)
		fallthrough
	case circuitHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenProbes {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		if cb.state == circuitHalfOpen {
			cb.logger.Info("circuit closed after successful probe")
		}
		cb.state = circuitClosed
		cb.failures = 0
		return
	}

	cb.failures++
	cb.openedAt = time.Now()
	switch cb.state {
	case circuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = circuitOpen
			cb.logger.Warn("circuit opened",
				"consecutive_failures", cb.failures, "cool_down", cb.cfg.CoolDown)
		}
	case circuitHalfOpen:
		cb.state = circuitOpen
		cb.logger.Warn("circuit reopened", "probe_error", err)
	}
}
