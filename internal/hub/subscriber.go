package hub

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/sync"
)

// ChannelSubscriber buffers events on a channel for a consumer that
// polls, such as the main loop.
type ChannelSubscriber struct {
	id   string
	send chan events.Event
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// NewChannelSubscriber creates a channel-backed subscriber. An empty id
// is replaced with a random one.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	if id == "" {
		id = uuid.NewString()
	}
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues event. When the buffer is full the event is dropped and the
// subscriber stays registered; only a closed subscriber fails.
func (s *ChannelSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubscriberClosed
	}
	select {
	case s.send <- event:
	default:
		n := s.dropped.Add(1)
		log.Warn().
			Str("subscriber_id", s.id).
			Str("event_type", string(event.Type())).
			Uint64("dropped", n).
			Msg("subscriber buffer full, event dropped")
	}
	return nil
}

// Dropped returns how many events were discarded on a full buffer.
func (s *ChannelSubscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close closes the subscriber and its event channel.
func (s *ChannelSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}

// Drain returns every queued event without blocking.
func (s *ChannelSubscriber) Drain() []events.Event {
	var out []events.Event
	for {
		select {
		case e, ok := <-s.send:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

// FuncSubscriber hands each event to a callback on the hub goroutine.
type FuncSubscriber struct {
	id   string
	fn   func(events.Event)
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewFuncSubscriber creates a callback subscriber. An empty id is
// replaced with a random one.
func NewFuncSubscriber(id string, fn func(events.Event)) *FuncSubscriber {
	if id == "" {
		id = uuid.NewString()
	}
	return &FuncSubscriber{
		id:   id,
		fn:   fn,
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *FuncSubscriber) ID() string {
	return s.id
}

// Send invokes the callback.
func (s *FuncSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return domain.ErrSubscriberClosed
	}
	if s.fn != nil {
		s.fn(event)
	}
	return nil
}

// Close closes the subscriber.
func (s *FuncSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *FuncSubscriber) Done() <-chan struct{} {
	return s.done
}
