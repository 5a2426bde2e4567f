package rcon

import (
	"context"
	"time"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/sync"
)

// Rate limiter defaults.
const (
	DefaultMaxRequests = 20
	DefaultWindow      = time.Second
)

// RateLimiter is a sliding window limiter. At most maxRequests sends are
// admitted in any window; further callers block until the oldest send
// leaves the window.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	clock       clock.Clock

	mu         sync.Mutex
	timestamps []time.Time
}

// RateLimiterOption is a functional option for configuring RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMaxRequests sets the maximum number of requests per window.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithWindow sets the time window for rate limiting.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithLimiterClock sets the clock used to age out requests.
func WithLimiterClock(c clock.Clock) RateLimiterOption {
	return func(r *RateLimiter) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRateLimiter creates a new RateLimiter with the given options.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		clock:       clock.Real(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.timestamps = make([]time.Time, 0, r.maxRequests)
	return r
}

// Allow records a request and returns true if the window has room.
func (r *RateLimiter) Allow() bool {
	_, ok := r.reserve()
	return ok
}

// Wait blocks until a request is admitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.reserve()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
		}
	}
}

// Remaining returns the number of requests the current window still admits.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expire(r.clock.Now())
	return r.maxRequests - len(r.timestamps)
}

// reserve admits a request or reports how long until the oldest one expires.
func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.expire(now)

	if len(r.timestamps) >= r.maxRequests {
		return r.timestamps[0].Add(r.window).Sub(now), false
	}
	r.timestamps = append(r.timestamps, now)
	return 0, true
}

func (r *RateLimiter) expire(now time.Time) {
	cutoff := now.Add(-r.window)
	valid := r.timestamps[:0]
	for _, ts := range r.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	r.timestamps = valid
}
