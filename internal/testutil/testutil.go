// Package testutil provides shared fakes for warden tests.
package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/sync"
)

// MockSubscriber implements ports.Subscriber and records what it receives.
type MockSubscriber struct {
	id   string
	done chan struct{}

	mu      sync.Mutex
	events  []events.Event
	closed  bool
	sendErr error
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the subscriber ID.
func (m *MockSubscriber) ID() string {
	return m.id
}

// Send records the event and returns any configured error.
func (m *MockSubscriber) Send(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	m.events = append(m.events, e)
	return nil
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (m *MockSubscriber) Done() <-chan struct{} {
	return m.done
}

// Events returns a copy of all received events.
func (m *MockSubscriber) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// EventCount returns the number of received events.
func (m *MockSubscriber) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// IsClosed returns whether the subscriber was closed.
func (m *MockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetSendError configures an error to return on Send.
func (m *MockSubscriber) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

var _ ports.Subscriber = (*MockSubscriber)(nil)

// MockEventHub implements ports.EventHub by recording synchronously.
type MockEventHub struct {
	mu          sync.Mutex
	events      []events.Event
	subscribers []ports.Subscriber
	started     bool
	stopped     bool
}

// NewMockEventHub creates a new mock event hub.
func NewMockEventHub() *MockEventHub {
	return &MockEventHub{}
}

// Start marks the hub as started.
func (m *MockEventHub) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

// Stop marks the hub as stopped.
func (m *MockEventHub) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// Publish records the event and delivers it to subscribers inline.
func (m *MockEventHub) Publish(e events.Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	subs := append([]ports.Subscriber(nil), m.subscribers...)
	m.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Send(e)
	}
}

// Subscribe records the subscriber.
func (m *MockEventHub) Subscribe(sub ports.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
}

// Unsubscribe removes a subscriber by ID.
func (m *MockEventHub) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub.ID() == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of subscribers.
func (m *MockEventHub) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// IsRunning returns true if the hub was started and not stopped.
func (m *MockEventHub) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped
}

// PublishedEvents returns all published events.
func (m *MockEventHub) PublishedEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// PublishedTypes returns the types of all published events, in order.
func (m *MockEventHub) PublishedTypes() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type()
	}
	return out
}

// CountType returns how many events of type t were published.
func (m *MockEventHub) CountType(t events.EventType) int {
	n := 0
	for _, et := range m.PublishedTypes() {
		if et == t {
			n++
		}
	}
	return n
}

var _ ports.EventHub = (*MockEventHub)(nil)

// FakeServer implements ports.ServerInterface in memory. Queued messages
// are returned by GetMessages; outbound calls are recorded as commands.
type FakeServer struct {
	backend ports.Backend

	mu       sync.Mutex
	open     bool
	openErr  error
	pending  []events.LogMessage
	commands []string
	vars     map[string]string
	status   *ports.ServerStatus
	drains   int
}

// NewFakeServer creates a closed fake server for backend.
func NewFakeServer(backend ports.Backend) *FakeServer {
	return &FakeServer{backend: backend, vars: make(map[string]string)}
}

// SetOpenError makes Open fail with err.
func (f *FakeServer) SetOpenError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// SetStatus sets the value returned by Status.
func (f *FakeServer) SetStatus(s *ports.ServerStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

// Push queues live lines for the next GetMessages.
func (f *FakeServer) Push(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range lines {
		f.pending = append(f.pending, events.NewLogMessage(l))
	}
}

// Commands returns every command issued so far.
func (f *FakeServer) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Drains returns how many times GetMessages was called.
func (f *FakeServer) Drains() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drains
}

func (f *FakeServer) record(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *FakeServer) Open(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	if f.open {
		return domain.ErrInterfaceOpen
	}
	f.open = true
	return nil
}

func (f *FakeServer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *FakeServer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.open
}

func (f *FakeServer) Backend() ports.Backend { return f.backend }

func (f *FakeServer) GetMessages() []events.LogMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drains++
	out := f.pending
	f.pending = nil
	if out == nil {
		out = []events.LogMessage{}
	}
	return out
}

func (f *FakeServer) Say(msg string) { f.record("say " + msg) }

func (f *FakeServer) BigText(msg string) { f.record("bigtext " + msg) }

func (f *FakeServer) Tell(slot int, msg string) {
	f.record("tell " + strconv.Itoa(slot) + " " + msg)
}

func (f *FakeServer) Kick(slot int, reason string) {
	f.record("kick " + strconv.Itoa(slot) + " " + reason)
}

func (f *FakeServer) Ban(slot int, reason string) {
	f.record("ban " + strconv.Itoa(slot) + " " + reason)
}

func (f *FakeServer) Mute(slot, seconds int) {
	f.record("mute " + strconv.Itoa(slot) + " " + strconv.Itoa(seconds))
}

func (f *FakeServer) GetVar(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vars[name]
	return v, ok
}

func (f *FakeServer) SetVar(name, value string) {
	f.mu.Lock()
	f.vars[name] = value
	f.mu.Unlock()
	f.record("set " + name + " " + value)
}

func (f *FakeServer) Status() *ports.ServerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *FakeServer) ListVars() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.vars))
	for k, v := range f.vars {
		out[k] = v
	}
	return out
}

func (f *FakeServer) PlayerInfo(slot int) map[string]string {
	f.record("dumpuser " + strconv.Itoa(slot))
	return map[string]string{}
}

func (f *FakeServer) ChangeMap(name string) bool {
	f.record("map " + name)
	return true
}

func (f *FakeServer) Execute(commands []string) error {
	for _, c := range commands {
		f.record(c)
	}
	return nil
}

func (f *FakeServer) Raw(command string) string {
	f.record(command)
	return ""
}

var _ ports.ServerInterface = (*FakeServer)(nil)

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
