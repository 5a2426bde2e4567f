// Package console drives a game server through its own interactive
// console on a pseudo-terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/sync"
)

// Console defaults.
const (
	DefaultQuitCommand    = "quit"
	DefaultGracePeriod    = 3 * time.Second
	DefaultCommandTimeout = 10 * time.Second
	killTimeout           = 2 * time.Second
)

// Options configures a Console.
type Options struct {
	Executable string
	Args       []string
	Dir        string
	Env        []string // appended to the inherited environment

	QuitCommand    string
	GracePeriod    time.Duration // wait after the quit command before signalling
	CommandTimeout time.Duration // default deadline for Execute

	// Sink receives every line that is not part of a command response.
	Sink func(events.LogMessage)

	// OnExit runs on the reader goroutine when the child exits without
	// Close having been called.
	OnExit func()

	Clock clock.Clock
}

// Console owns the server child process and its terminal. One reader
// goroutine routes output; Execute blocks the calling goroutine.
type Console struct {
	opts   Options
	clock  clock.Clock
	router *router

	mu       sync.Mutex
	cmd      *exec.Cmd
	tty      *os.File
	open     bool
	stopping bool
	exited   chan struct{}

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// New validates opts and creates a closed console.
func New(opts Options) (*Console, error) {
	if opts.Executable == "" {
		return nil, domain.NewValidationError("console.executable", "server executable is required")
	}
	if _, err := exec.LookPath(opts.Executable); err != nil {
		return nil, fmt.Errorf("%w: server executable %q: %v", domain.ErrConfiguration, opts.Executable, err)
	}
	if opts.QuitCommand == "" {
		opts.QuitCommand = DefaultQuitCommand
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.Sink == nil {
		opts.Sink = func(events.LogMessage) {}
	}
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}

	return &Console{
		opts:   opts,
		clock:  c,
		router: newRouter(opts.Sink),
	}, nil
}

// Open starts the server process on a new pseudo-terminal.
func (c *Console) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return domain.ErrInterfaceOpen
	}

	cmd := exec.Command(c.opts.Executable, c.opts.Args...)
	cmd.Dir = c.opts.Dir
	cmd.Env = append(os.Environ(), "TERM=dumb")
	cmd.Env = append(cmd.Env, c.opts.Env...)

	tty, err := startPTY(cmd)
	if err != nil {
		return domain.NewTransportError("console", "start",
			fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err))
	}

	c.cmd = cmd
	c.tty = tty
	c.open = true
	c.stopping = false
	c.exited = make(chan struct{})
	c.router = newRouter(c.opts.Sink)

	c.wg.Add(2)
	go c.readLoop(tty, c.router)
	go c.waitLoop(cmd, c.exited)

	log.Info().
		Str("executable", c.opts.Executable).
		Strs("args", c.opts.Args).
		Int("pid", cmd.Process.Pid).
		Msg("server console started")
	return nil
}

// Closed reports whether the console has no running child.
func (c *Console) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.open
}

// PID returns the child's process id, or 0 when closed.
func (c *Console) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Mode returns the current router mode.
func (c *Console) Mode() Mode {
	c.mu.Lock()
	r := c.router
	c.mu.Unlock()
	return r.Mode()
}

// Execute writes proc's command and waits for its response. It fails with
// domain.ErrCommandTimeout after the configured command timeout, and with
// domain.ErrChildProcessExited if the server dies first.
func (c *Console) Execute(ctx context.Context, proc Processor) ([]string, error) {
	command := proc.Command()
	if strings.TrimSpace(command) == "" {
		return nil, domain.ErrEmptyCommand
	}

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, domain.ErrInterfaceClosed
	}
	r := c.router
	tty := c.tty
	c.mu.Unlock()

	req := r.enqueue(proc)
	if err := c.write(tty, command); err != nil {
		r.abandon(req)
		return nil, domain.NewTransportError("console", "write", err)
	}

	select {
	case <-req.done:
		if req.err != nil {
			return nil, req.err
		}
		return proc.Response(), nil
	case <-ctx.Done():
		if r.abandon(req) {
			return nil, ctx.Err()
		}
	case <-c.clock.After(c.opts.CommandTimeout):
		if r.abandon(req) {
			log.Warn().Str("command", command).Dur("timeout", c.opts.CommandTimeout).Msg("console command timed out")
			return nil, fmt.Errorf("%w: %s", domain.ErrCommandTimeout, command)
		}
	}

	// Completed while we were giving up.
	<-req.done
	if req.err != nil {
		return nil, req.err
	}
	return proc.Response(), nil
}

// Send writes a command without waiting for any response.
func (c *Console) Send(command string) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return domain.ErrInterfaceClosed
	}
	tty := c.tty
	c.mu.Unlock()

	if err := c.write(tty, command); err != nil {
		return domain.NewTransportError("console", "write", err)
	}
	return nil
}

func (c *Console) write(tty *os.File, command string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(tty, command+"\n")
	return err
}

// Close asks the server to quit, waits the grace period, then terminates
// the process group and joins the reader. Close on a closed console is a
// no-op.
func (c *Console) Close() error {
	return c.close(true)
}

// Terminate is Close without the quit command, for callers that already
// shut the server down through Execute.
func (c *Console) Terminate() error {
	return c.close(false)
}

func (c *Console) close(sendQuit bool) error {
	c.mu.Lock()
	if c.cmd == nil || c.stopping {
		c.mu.Unlock()
		return nil
	}
	c.stopping = true
	cmd := c.cmd
	tty := c.tty
	exited := c.exited
	r := c.router
	c.mu.Unlock()

	if sendQuit && !isDone(exited) {
		if err := c.write(tty, c.opts.QuitCommand); err != nil {
			log.Debug().Err(err).Msg("failed to send quit command")
		}
		select {
		case <-exited:
		case <-c.clock.After(c.opts.GracePeriod):
		}
	}

	if !isDone(exited) {
		if err := terminateProcess(cmd); err != nil {
			log.Warn().Err(err).Msg("graceful termination failed, will force kill")
		}
		select {
		case <-exited:
		case <-time.After(killTimeout):
			if err := killProcess(cmd); err != nil {
				log.Warn().Err(err).Msg("failed to kill server process")
			}
		}
	}

	_ = tty.Close()
	c.wg.Wait()
	r.fail(domain.ErrInterfaceClosed)

	c.mu.Lock()
	c.open = false
	c.cmd = nil
	c.tty = nil
	c.mu.Unlock()

	log.Info().Int("pid", cmd.Process.Pid).Msg("server console closed")
	return nil
}

func (c *Console) stopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}

// readLoop routes terminal output line by line until the terminal closes.
// It keeps reading while Close runs so shutdown output never blocks the
// child on a full terminal buffer.
func (c *Console) readLoop(tty io.Reader, r *router) {
	defer c.wg.Done()

	err := consume(tty, r)
	if c.stopRequested() {
		return
	}

	if err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Msg("console read ended")
	}
	log.Warn().Str("executable", c.opts.Executable).Msg("server process exited")

	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	r.fail(domain.ErrChildProcessExited)

	if c.opts.OnExit != nil {
		c.opts.OnExit()
	}
}

// consume feeds complete lines from src to r until a read fails. A final
// unterminated line is fed before returning.
func consume(src io.Reader, r *router) error {
	reader := bufio.NewReaderSize(src, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if line != "" {
				r.feed(StripANSI(line))
			}
			return err
		}
		r.feed(StripANSI(strings.TrimSuffix(line, "\n")))
	}
}

func (c *Console) waitLoop(cmd *exec.Cmd, exited chan struct{}) {
	defer c.wg.Done()
	err := cmd.Wait()
	close(exited)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.Int("pid", cmd.Process.Pid).Msg("server process reaped")
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
