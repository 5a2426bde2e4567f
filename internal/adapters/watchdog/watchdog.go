// Package watchdog tracks whether the game server process is running and
// publishes one event per lifecycle transition.
package watchdog

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/sync"
)

// DefaultInterval is the default poll interval.
const DefaultInterval = 100 * time.Millisecond

// State is the watchdog's view of the process.
type State int

const (
	StateUnknown State = iota
	StateUnavailable
	StateExisting
	StateStarted
	StateDied
	StateRestarted
)

func (s State) String() string {
	switch s {
	case StateUnavailable:
		return "unavailable"
	case StateExisting:
		return "existing"
	case StateStarted:
		return "started"
	case StateDied:
		return "died"
	case StateRestarted:
		return "restarted"
	default:
		return "unknown"
	}
}

// eventTypes maps states that are announced to their event type.
var eventTypes = map[State]events.EventType{
	StateUnavailable: events.EventTypeProcessUnavailable,
	StateExisting:    events.EventTypeProcessExisting,
	StateStarted:     events.EventTypeProcessStarted,
	StateDied:        events.EventTypeProcessDied,
	StateRestarted:   events.EventTypeProcessRestarted,
}

// Watchdog polls a process table for one image name. It never restarts
// anything itself; subscribers decide what to do.
type Watchdog struct {
	table    ports.ProcessTable
	image    string
	hub      ports.EventHub
	clock    clock.Clock
	interval time.Duration

	mu       sync.Mutex
	state    State
	pid      int
	running  bool
	stopping bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option is a functional option for configuring Watchdog.
type Option func(*Watchdog)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithClock sets the clock driving the poll ticker.
func WithClock(c clock.Clock) Option {
	return func(w *Watchdog) {
		if c != nil {
			w.clock = c
		}
	}
}

// New creates a watchdog for image. Events go to hub, which may be nil.
func New(table ports.ProcessTable, image string, hub ports.EventHub, opts ...Option) *Watchdog {
	w := &Watchdog{
		table:    table,
		image:    image,
		hub:      hub,
		clock:    clock.Real(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Image returns the watched image name.
func (w *Watchdog) Image() string { return w.image }

// State returns the current state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// PID returns the last known process id, 0 if none.
func (w *Watchdog) PID() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pid
}

// Subscribe registers sub for lifecycle events.
func (w *Watchdog) Subscribe(sub ports.Subscriber) {
	if w.hub != nil {
		w.hub.Subscribe(sub)
	}
}

// Unsubscribe removes a subscriber by ID.
func (w *Watchdog) Unsubscribe(id string) {
	if w.hub != nil {
		w.hub.Unsubscribe(id)
	}
}

// Start polls immediately and then every interval until Stop or ctx ends.
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return domain.ErrWatchdogRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.stopping = false
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)

	log.Info().Str("image", w.image).Dur("interval", w.interval).Msg("process watchdog started")
	return nil
}

// Stop signals the poll loop and waits for it to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.stopping = true
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	log.Info().Str("image", w.image).Msg("process watchdog stopped")
}

func (w *Watchdog) stopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopping
}

func (w *Watchdog) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for !w.stopRequested() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll performs one lookup and applies at most one transition. A PID
// change between two polls counts as died followed by restarted. It
// returns the resulting state.
func (w *Watchdog) Poll(ctx context.Context) State {
	pid, found, err := w.table.Lookup(ctx, w.image)
	if err != nil {
		log.Warn().Err(err).Str("image", w.image).Msg("process table lookup failed")
		return w.State()
	}

	w.mu.Lock()
	prev, prevPID := w.state, w.pid
	var emitted []State

	switch prev {
	case StateUnknown:
		if found {
			emitted = []State{StateExisting}
		} else {
			emitted = []State{StateUnavailable}
		}
	case StateUnavailable:
		if found {
			emitted = []State{StateStarted}
		}
	case StateExisting, StateStarted:
		switch {
		case !found:
			emitted = []State{StateDied}
		case pid != prevPID:
			emitted = []State{StateDied, StateRestarted}
		}
	case StateDied:
		if found {
			emitted = []State{StateRestarted}
		}
	}

	if found {
		w.pid = pid
	}
	if len(emitted) > 0 {
		next := emitted[len(emitted)-1]
		// A restarted process settles as started.
		if next == StateRestarted {
			next = StateStarted
		}
		w.state = next
	}
	state := w.state
	w.mu.Unlock()

	for _, s := range emitted {
		w.publish(s, pid, prevPID)
	}
	return state
}

func (w *Watchdog) publish(s State, pid, prevPID int) {
	if s == StateDied || s == StateUnavailable {
		pid = 0
	}

	log.Info().
		Str("image", w.image).
		Str("state", s.String()).
		Int("pid", pid).
		Int("previous_pid", prevPID).
		Msg("process state changed")

	if w.hub != nil {
		w.hub.Publish(events.NewProcessEvent(eventTypes[s], w.image, pid, prevPID))
	}
}
