// Package retry runs an operation a bounded number of times with a delay
// schedule between attempts
package retry

import (
	"context"
	"time"
)

// Schedule returns the delay to wait after the given zero-based attempt failed
type Schedule func(attempt int) time.Duration

// Exponential doubles base on every attempt and clamps at ceiling (0 means no ceiling)
func Exponential(base, ceiling time.Duration) Schedule {
	return func(attempt int) time.Duration {
		d := base << uint(attempt)
		if d < base || (ceiling > 0 && d > ceiling) {
			return ceiling
		}
		return d
	}
}

// Constant waits d between every attempt
func Constant(d time.Duration) Schedule {
	return func(int) time.Duration { return d }
}

// Policy bounds a retry loop
type Policy struct {
	// Attempts is the total number of calls, including the first; values < 1 mean 1
	Attempts int

	// Delay is consulted after each failed attempt; nil means retry immediately
	Delay Schedule

	// Retryable decides whether an error earns another attempt; nil means every error does
	Retryable func(error) bool

	// Sleep waits between attempts and must return early when ctx is done; nil uses SleepContext
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before sleeping, for logging
	OnRetry func(attempt int, wait time.Duration, err error)
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls op until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. It returns the number of calls made and the last error
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) (int, error) {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return i, cerr
		}
		if err = op(ctx, i); err == nil {
			return i + 1, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return i + 1, err
		}
		if i == attempts-1 {
			break
		}
		var wait time.Duration
		if p.Delay != nil {
			wait = p.Delay(i)
		}
		if p.OnRetry != nil {
			p.OnRetry(i, wait, err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return i + 1, serr
		}
	}
	return attempts, err
}
