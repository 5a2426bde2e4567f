package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/testutil"
)

var errTestSendFailed = errors.New("send failed")

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func diedEvent(pid int) events.Event {
	return events.NewProcessEvent(events.EventTypeProcessDied, "ioq3ded", 0, pid)
}

func TestHub_StartStop(t *testing.T) {
	h := New()

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.IsRunning() {
		t.Error("hub should be running after Start()")
	}
	if err := h.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Error("hub should not be running after Stop()")
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestHub_Restart(t *testing.T) {
	h := New()
	_ = h.Start()
	_ = h.Stop()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	sub := testutil.NewMockSubscriber("after-restart")
	h.Subscribe(sub)
	h.Publish(diedEvent(1))

	testutil.Eventually(t, time.Second, func() bool { return sub.EventCount() == 1 }, "event after restart")
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := startHub(t)

	sub := testutil.NewMockSubscriber("test-1")
	h.Subscribe(sub)
	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 1 }, "subscriber registered")

	h.Unsubscribe("test-1")
	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 0 }, "subscriber removed")

	if !sub.IsClosed() {
		t.Error("subscriber should be closed after unsubscribe")
	}
}

func TestHub_PublishToMultipleSubscribers(t *testing.T) {
	h := startHub(t)

	subs := []*testutil.MockSubscriber{
		testutil.NewMockSubscriber("a"),
		testutil.NewMockSubscriber("b"),
		testutil.NewMockSubscriber("c"),
	}
	for _, sub := range subs {
		h.Subscribe(sub)
	}
	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 3 }, "three subscribers")

	for i := 0; i < 5; i++ {
		h.Publish(diedEvent(i))
	}

	for _, sub := range subs {
		testutil.Eventually(t, time.Second, func() bool { return sub.EventCount() == 5 }, "all events delivered to "+sub.ID())
	}
}

func TestHub_FailedSendRemovesSubscriber(t *testing.T) {
	h := startHub(t)

	failing := testutil.NewMockSubscriber("failing")
	failing.SetSendError(errTestSendFailed)
	good := testutil.NewMockSubscriber("good")

	h.Subscribe(failing)
	h.Subscribe(good)
	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 2 }, "two subscribers")

	h.Publish(diedEvent(1))

	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 1 }, "failing subscriber removed")
	testutil.Eventually(t, time.Second, func() bool { return good.EventCount() == 1 }, "good subscriber received event")
	if !failing.IsClosed() {
		t.Error("failing subscriber should be closed")
	}
}

func TestHub_FullBufferKeepsSubscriber(t *testing.T) {
	h := startHub(t)

	sub := NewChannelSubscriber("main-loop", 2)
	h.Subscribe(NewProcessSubscriber(sub))

	for i := 1; i <= 3; i++ {
		h.Publish(diedEvent(i))
	}
	testutil.Eventually(t, time.Second, func() bool { return sub.Dropped() == 1 }, "third event dropped")

	if got := sub.Drain(); len(got) != 2 {
		t.Fatalf("Drain() returned %d events, want 2", len(got))
	}
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1 after overflow", h.SubscriberCount())
	}

	h.Publish(events.NewProcessEvent(events.EventTypeProcessRestarted, "ioq3ded", 4, 3))

	var got []events.Event
	testutil.Eventually(t, time.Second, func() bool {
		got = append(got, sub.Drain()...)
		return len(got) == 1
	}, "restarted event delivered after overflow")
	if got[0].Type() != events.EventTypeProcessRestarted {
		t.Errorf("event type = %s, want process_restarted", got[0].Type())
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := New()
	_ = h.Start()

	sub := testutil.NewMockSubscriber("a")
	h.Subscribe(sub)
	testutil.Eventually(t, time.Second, func() bool { return h.SubscriberCount() == 1 }, "subscriber registered")

	_ = h.Stop()
	if !sub.IsClosed() {
		t.Error("subscriber should be closed by Stop")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", h.SubscriberCount())
	}
}

func TestHub_SubscribeWhenStoppedDoesNotBlock(t *testing.T) {
	h := New()

	done := make(chan struct{})
	go func() {
		h.Subscribe(testutil.NewMockSubscriber("x"))
		h.Unsubscribe("x")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe blocked on a stopped hub")
	}
}
