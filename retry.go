package golokal

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls how explicit fetches back off after transient failures.
// Background refreshes never retry; the next poll tick is their retry.
type RetryConfig struct {
	MaxRetries int           // Attempts after the first one
	BaseDelay  time.Duration // Delay before the first retry, doubled each time
	MaxDelay   time.Duration // Upper bound for any single delay
}

// DefaultRetryConfig returns the backoff used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// delay returns the wait before retry number attempt (0-based). A longer
// Retry-After from the server wins, still bounded by MaxDelay.
func (cfg RetryConfig) delay(attempt int, err error) time.Duration {
	d := cfg.MaxDelay
	if attempt < 32 {
		d = cfg.BaseDelay << attempt
	}
	if d <= 0 || d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > d {
		d = min(fetchErr.RetryAfter, cfg.MaxDelay)
	}
	return d
}

// RetryFunc is one attempt of a retried operation.
type RetryFunc[T any] func() (T, error)

// WithRetry runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries are used up. The last error is returned.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		timer := time.NewTimer(cfg.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err is a transient API failure. Cancellation
// is never retryable, even when it surfaced through a FetchError.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Retryable
}
