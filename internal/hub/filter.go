package hub

import (
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/sync"
)

// FilteredSubscriber wraps a subscriber and forwards only selected event
// types. With no types selected every event is forwarded.
type FilteredSubscriber struct {
	inner ports.Subscriber

	mu    sync.RWMutex
	types map[events.EventType]bool
}

// NewFilteredSubscriber wraps inner, forwarding only the given types.
func NewFilteredSubscriber(inner ports.Subscriber, types ...events.EventType) *FilteredSubscriber {
	f := &FilteredSubscriber{
		inner: inner,
		types: make(map[events.EventType]bool),
	}
	f.Allow(types...)
	return f
}

// NewProcessSubscriber wraps inner to receive watchdog lifecycle events only.
func NewProcessSubscriber(inner ports.Subscriber) *FilteredSubscriber {
	return NewFilteredSubscriber(inner,
		events.EventTypeProcessExisting,
		events.EventTypeProcessUnavailable,
		events.EventTypeProcessStarted,
		events.EventTypeProcessDied,
		events.EventTypeProcessRestarted,
	)
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards event if its type is selected.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// Allow adds event types to the filter.
func (f *FilteredSubscriber) Allow(types ...events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range types {
		f.types[t] = true
	}
}

// Disallow removes event types from the filter.
func (f *FilteredSubscriber) Disallow(types ...events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range types {
		delete(f.types, t)
	}
}

// AllowAll clears the filter.
func (f *FilteredSubscriber) AllowAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = make(map[events.EventType]bool)
}

// IsFiltering returns true if only some event types are forwarded.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.types) > 0
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.types) == 0 {
		return true
	}
	return f.types[event.Type()]
}
