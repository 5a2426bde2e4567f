package hub

import (
	"errors"
	"testing"

	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
)

func TestChannelSubscriber_SendAndDrain(t *testing.T) {
	sub := NewChannelSubscriber("main-loop", 4)

	for i := 0; i < 3; i++ {
		if err := sub.Send(diedEvent(i)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	got := sub.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain() returned %d events, want 3", len(got))
	}
	if again := sub.Drain(); len(again) != 0 {
		t.Errorf("second Drain() returned %d events, want 0", len(again))
	}
}

func TestChannelSubscriber_FullBuffer(t *testing.T) {
	sub := NewChannelSubscriber("slow", 1)

	if err := sub.Send(diedEvent(1)); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if err := sub.Send(diedEvent(2)); err != nil {
		t.Errorf("Send() on full buffer error = %v, want nil", err)
	}
	if sub.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", sub.Dropped())
	}

	got := sub.Drain()
	if len(got) != 1 {
		t.Fatalf("Drain() returned %d events, want 1", len(got))
	}
	if err := sub.Send(diedEvent(3)); err != nil {
		t.Fatalf("Send() after drain error = %v", err)
	}
	if got := sub.Drain(); len(got) != 1 {
		t.Errorf("Drain() after refill returned %d events, want 1", len(got))
	}
}

func TestChannelSubscriber_Close(t *testing.T) {
	sub := NewChannelSubscriber("x", 1)

	if err := sub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := sub.Send(diedEvent(1)); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSubscriberClosed", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("Events() channel should be closed")
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestChannelSubscriber_GeneratedID(t *testing.T) {
	a := NewChannelSubscriber("", 1)
	b := NewChannelSubscriber("", 1)

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("generated IDs %q and %q should be unique and non-empty", a.ID(), b.ID())
	}
}

func TestFuncSubscriber(t *testing.T) {
	var got []events.EventType
	sub := NewFuncSubscriber("", func(e events.Event) { got = append(got, e.Type()) })

	_ = sub.Send(diedEvent(1))
	_ = sub.Close()
	if err := sub.Send(diedEvent(2)); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSubscriberClosed", err)
	}

	if len(got) != 1 || got[0] != events.EventTypeProcessDied {
		t.Errorf("callback saw %v, want [process_died]", got)
	}
	if sub.ID() == "" {
		t.Error("ID() should be generated")
	}
}
