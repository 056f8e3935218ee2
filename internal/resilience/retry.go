// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"context"
	"time"
)

// Policy describes a bounded retry with exponential backoff.
// MaxRetries counts additional attempts after the first, so an operation is
// tried at most 1+MaxRetries times. The delay before retry n is
// BaseDelay * 2^(n-1).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// Sleep is swapped out in tests. Nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, the attempt budget is spent, or retryable
// reports the error as permanent. It returns the last error observed.
// A nil retryable retries every error.
func (p Policy) Do(ctx context.Context, fn func() error, retryable func(error) bool) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	delay := p.BaseDelay
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return err
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		delay *= 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
