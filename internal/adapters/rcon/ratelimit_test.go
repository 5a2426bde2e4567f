package rcon

import (
	"context"
	"testing"
	"time"

	"github.com/brianly1003/warden/internal/clock"
)

func TestRateLimiter_Allow(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	rl := NewRateLimiter(WithMaxRequests(2), WithWindow(time.Second), WithLimiterClock(clk))

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow() {
		t.Error("third request should be limited")
	}
	if n := rl.Remaining(); n != 0 {
		t.Errorf("Remaining() = %d, want 0", n)
	}

	clk.Advance(time.Second)
	if n := rl.Remaining(); n != 2 {
		t.Errorf("Remaining() after window = %d, want 2", n)
	}
	if !rl.Allow() {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	rl := NewRateLimiter(WithMaxRequests(2), WithWindow(time.Second), WithLimiterClock(clk))

	rl.Allow()
	clk.Advance(600 * time.Millisecond)
	rl.Allow()
	clk.Advance(600 * time.Millisecond)

	// The first request left the window; the second has not.
	if n := rl.Remaining(); n != 1 {
		t.Errorf("Remaining() = %d, want 1", n)
	}
}

func TestRateLimiter_WaitBlocksUntilSlotFrees(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	rl := NewRateLimiter(WithMaxRequests(1), WithWindow(time.Second), WithLimiterClock(clk))

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- rl.Wait(context.Background()) }()

	clk.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Wait() returned before the window moved")
	default:
	}

	clk.Advance(time.Second)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Advance")
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	rl := NewRateLimiter(WithMaxRequests(1), WithLimiterClock(clk))
	rl.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}
