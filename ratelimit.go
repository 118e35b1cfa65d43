package golokal

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures request throttling against the translations API.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate (default: 60)
	BurstSize         int // Requests allowed back to back (default: same as RPM)
}

// RateLimiter is a token bucket shared by every request a Client sends.
// Waiters reserve tokens in arrival order, so the bucket can go into debt
// and each waiter sleeps until its own token has accrued.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
	now      func() time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}

	r := &RateLimiter{
		capacity: float64(burst),
		perSec:   float64(rpm) / 60,
		now:      time.Now,
	}
	r.tokens = r.capacity
	r.last = r.now()
	return r
}

// advance credits tokens accrued since the last call. Callers hold mu.
func (r *RateLimiter) advance() {
	now := r.now()
	if elapsed := now.Sub(r.last).Seconds(); elapsed > 0 {
		r.tokens = min(r.capacity, r.tokens+elapsed*r.perSec)
	}
	r.last = now
}

// reserve takes one token and returns how long the caller must wait for it.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	r.tokens--
	if r.tokens >= 0 {
		return 0
	}
	return time.Duration(-r.tokens / r.perSec * float64(time.Second))
}

// cancel returns a reserved token that was never used.
func (r *RateLimiter) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	r.tokens = min(r.capacity, r.tokens+1)
}

// Wait blocks until the caller may send a request or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := r.reserve()
	if d == 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TryAcquire takes a token only if one is available right now.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Available returns the current token count. It is negative while waiters
// hold reservations.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	return r.tokens
}
