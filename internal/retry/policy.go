// Package retry runs an operation under a bounded attempt budget with a
// caller-supplied retryability predicate and backoff.
package retry

import (
	"context"
	"time"
)

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	// MaxAttempts includes the first call. Values below 1 mean 1.
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err may succeed on a later attempt. Nil
	// treats every error as retryable.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Linear waits base × attempt after each failure.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. It returns the last result, the number of
// attempts made and the last error from fn. If ctx ends during a backoff
// wait, Do stops early but still reports fn's last error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = fn(ctx, attempt)
		if err == nil {
			return result, attempt, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return result, attempt, err
		}
		if attempt == maxAttempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if sleep(ctx, wait) != nil {
			return result, attempt, err
		}
	}
	return result, maxAttempts, err
}

// SleepContext blocks for d, returning early with ctx.Err() if ctx ends.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
