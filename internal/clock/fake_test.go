package clock

import (
	"testing"
	"time"
)

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	ch := c.After(time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-ch:
		if want := start.Add(time.Second); !got.Equal(want) {
			t.Errorf("fired at %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClock_SleepUnblocks(t *testing.T) {
	c := Fake(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		c.Sleep(3 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClock_TickerReschedules(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	ticker := c.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		c.Advance(100 * time.Millisecond)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	if n := c.PendingCount(); n != 0 {
		t.Errorf("PendingCount() after Stop = %d, want 0", n)
	}
}
