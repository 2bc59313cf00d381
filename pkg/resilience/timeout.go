package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds fn to the given duration via a derived context. When
// the deadline passes before fn returns, the call reports
// context.DeadlineExceeded without waiting for fn to notice the
// cancellation. A timeout of zero or less runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- fn(bounded) }()

	select {
	case err := <-errc:
		return err
	case <-bounded.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
