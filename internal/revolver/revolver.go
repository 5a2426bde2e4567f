// Package revolver hands log lines from one producer goroutine to the
// single-threaded main loop.
package revolver

import (
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/sync"
)

// Revolver is a double-buffered queue. The producer appends to the current
// container; Drain swaps containers and hands the filled one to the caller.
//
// A slice returned by Drain is valid until the next Drain, which clears
// it and reuses its backing array. Appends in between do not touch it.
type Revolver struct {
	mu       sync.Mutex
	current  []events.LogMessage
	previous []events.LogMessage
}

// New creates an empty Revolver.
func New() *Revolver {
	return &Revolver{}
}

// Append queues a single message.
func (r *Revolver) Append(msg events.LogMessage) {
	r.mu.Lock()
	r.current = append(r.current, msg)
	r.mu.Unlock()
}

// AppendAll queues msgs in order.
func (r *Revolver) AppendAll(msgs []events.LogMessage) {
	if len(msgs) == 0 {
		return
	}
	r.mu.Lock()
	r.current = append(r.current, msgs...)
	r.mu.Unlock()
}

// Drain returns every message appended since the previous Drain, in
// production order. The result is empty, never nil.
func (r *Revolver) Drain() []events.LogMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.current
	clear(r.previous)
	r.current = r.previous[:0]
	r.previous = out

	if out == nil {
		return []events.LogMessage{}
	}
	return out
}

// Len returns the number of messages waiting to be drained.
func (r *Revolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.current)
}
