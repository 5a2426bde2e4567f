//go:build !windows

package console

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) publish(msg events.LogMessage) {
	s.mu.Lock()
	s.lines = append(s.lines, msg.Content)
	s.mu.Unlock()
}

func (s *lineSink) contains(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l == line {
			return true
		}
	}
	return false
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func openCat(t *testing.T, opts Options) *Console {
	t.Helper()
	requireBinary(t, "cat")

	opts.Executable = "cat"
	if opts.GracePeriod == 0 {
		opts.GracePeriod = 50 * time.Millisecond
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConsole_ExecuteEcho(t *testing.T) {
	c := openCat(t, Options{})

	// The terminal echoes the command, then cat repeats it.
	resp, err := c.Execute(context.Background(), NewEchoProcessor("hello"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(resp) != 1 || resp[0] != "hello" {
		t.Errorf("Execute() = %q, want [hello]", resp)
	}
	if m := c.Mode(); m != ModeInput {
		t.Errorf("Mode() = %v, want input", m)
	}
}

func TestConsole_CommandTimeout(t *testing.T) {
	c := openCat(t, Options{CommandTimeout: 200 * time.Millisecond})

	_, err := c.Execute(context.Background(), NewBlankLineProcessor("status"))
	if !errors.Is(err, domain.ErrCommandTimeout) {
		t.Fatalf("Execute() error = %v, want ErrCommandTimeout", err)
	}
	if m := c.Mode(); m != ModeInput {
		t.Errorf("Mode() after timeout = %v, want input", m)
	}
}

func TestConsole_ContextCancel(t *testing.T) {
	c := openCat(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Execute(ctx, NewBlankLineProcessor("status"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestConsole_Close(t *testing.T) {
	c := openCat(t, Options{})

	if c.Closed() {
		t.Fatal("Closed() = true after Open")
	}
	if err := c.Open(context.Background()); !errors.Is(err, domain.ErrInterfaceOpen) {
		t.Errorf("second Open() error = %v, want ErrInterfaceOpen", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := c.Execute(context.Background(), NewEchoProcessor("x")); !errors.Is(err, domain.ErrInterfaceClosed) {
		t.Errorf("Execute() after Close error = %v, want ErrInterfaceClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConsole_CloseDrainsShutdownOutput(t *testing.T) {
	requireBinary(t, "sh")
	sink := &lineSink{}

	// On quit the child writes far more than a terminal buffer holds
	// before exiting on its own.
	script := `read l; i=0; while [ $i -lt 3000 ]; do echo "shutdown line $i"; i=$((i+1)); done; echo shutdown-complete`
	c, err := New(Options{
		Executable:  "sh",
		Args:        []string{"-c", script},
		Sink:        sink.publish,
		GracePeriod: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	began := time.Now()
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if elapsed := time.Since(began); elapsed > 8*time.Second {
		t.Errorf("Close() took %s, child was not drained", elapsed)
	}
	if !sink.contains("shutdown-complete") {
		t.Error("final shutdown line not published")
	}
}

func TestConsole_TerminateSkipsQuit(t *testing.T) {
	// cat ignores the quit command, so Close would wait out the grace period.
	c := openCat(t, Options{GracePeriod: 10 * time.Second})

	began := time.Now()
	if err := c.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if elapsed := time.Since(began); elapsed > 5*time.Second {
		t.Errorf("Terminate() took %s, want no grace period", elapsed)
	}
	if !c.Closed() {
		t.Error("Closed() = false after Terminate")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() after Terminate error = %v", err)
	}
}

func TestConsole_ChildExit(t *testing.T) {
	requireBinary(t, "sh")
	sink := &lineSink{}
	var exited atomic.Bool

	c, err := New(Options{
		Executable: "sh",
		Args:       []string{"-c", "echo started; sleep 0.2"},
		Sink:       sink.publish,
		OnExit:     func() { exited.Store(true) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer c.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !c.Closed() || !exited.Load() {
		if time.Now().After(deadline) {
			t.Fatal("console did not close after child exit")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !sink.contains("started") {
		t.Errorf("published %q, want it to contain %q", sink.lines, "started")
	}
	if _, err := c.Execute(context.Background(), NewEchoProcessor("x")); !errors.Is(err, domain.ErrInterfaceClosed) {
		t.Errorf("Execute() after exit error = %v, want ErrInterfaceClosed", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("New() without executable error = %v, want ErrConfiguration", err)
	}
	_, err := New(Options{Executable: "/nonexistent/" + strings.Repeat("x", 8)})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("New() with missing executable error = %v, want ErrConfiguration", err)
	}
}
