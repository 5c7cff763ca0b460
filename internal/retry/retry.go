// Package retry runs operations against the upstream service with a
// bounded exponential backoff schedule and optional per-attempt timeouts.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy controls how many times an operation is retried and how long
// to wait between attempts. The zero value performs a single attempt.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the wait before the first retry. Each subsequent
	// retry doubles it.
	BaseDelay time.Duration

	// AttemptTimeout bounds each individual attempt. Zero means the
	// attempt inherits the caller's deadline unchanged.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the conservative default used across the
// console: no retries, so mutating operations are never replayed
// without the caller opting in.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 0, BaseDelay: 300 * time.Millisecond}
}

// ExhaustedError reports that every attempt allowed by the policy
// failed. It is only produced when at least one retry was attempted;
// single-attempt failures pass through unchanged.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Execute runs op until it succeeds or the policy is exhausted.
// Attempts are strictly sequential. If the caller's context is
// cancelled while waiting between attempts, the context error is
// returned immediately.
func Execute[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	attempts := p.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		out, err := op(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := p.BaseDelay << uint(attempt)
		logrus.Debugf("retry: attempt %d/%d failed, next in %s: %v", attempt+1, attempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	if p.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Do is Execute for operations that produce no value.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Execute(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
