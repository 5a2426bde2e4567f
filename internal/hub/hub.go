// Package hub fans warden events out to subscribers.
package hub

import (
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/sync"
)

const broadcastBuffer = 256

// Hub is the central event dispatcher. Publish never blocks the caller;
// a full broadcast queue drops the event with a warning.
type Hub struct {
	subscribers map[string]ports.Subscriber
	broadcast   chan events.Event
	register    chan ports.Subscriber
	unregister  chan string

	// mu protects subscribers, running and done.
	mu      sync.RWMutex
	done    chan struct{}
	running bool
	wg      sync.WaitGroup
}

// New creates a stopped Hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, broadcastBuffer),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
}

// Start begins the dispatch loop. Starting a running hub is a no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	h.wg.Add(1)
	go h.run(done)

	log.Debug().Msg("event hub started")
	return nil
}

// Stop ends the dispatch loop and closes every subscriber.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.done)
	h.mu.Unlock()

	h.wg.Wait()

	h.mu.Lock()
	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run(done <-chan struct{}) {
	defer h.wg.Done()

	for {
		select {
		case <-done:
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.remove(id)

		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// dispatch delivers event to every subscriber. Subscribers that fail a
// send are dropped.
func (h *Hub) dispatch(event events.Event) {
	var failed []string

	h.mu.RLock()
	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("failed to send event to subscriber")
			failed = append(failed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range failed {
		h.remove(id)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")
	}
}

// Publish queues event for delivery.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast channel full")
	}
}

// Subscribe adds a subscriber. It is ignored when the hub is stopped.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	done := h.doneChan()
	select {
	case h.register <- sub:
	case <-done:
	}
}

// Unsubscribe removes and closes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	done := h.doneChan()
	select {
	case h.unregister <- id:
	case <-done:
	}
}

func (h *Hub) doneChan() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.done
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
