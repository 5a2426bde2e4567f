// Package clock abstracts time so timing-dependent code (retry deadlines,
// rate-limit windows, poll loops) can be tested without wall-clock waits.
package clock

import "time"

// Clock is the subset of the time package used by warden components.
// Production code uses Real(); tests use Fake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d.
	// If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop when done.
// C has capacity 1; ticks are dropped if the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
