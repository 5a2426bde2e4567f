package console

import (
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/sync"
)

// Mode is the router state.
type Mode int

const (
	// ModeInput publishes lines as log messages.
	ModeInput Mode = iota
	// ModeCommand feeds lines to the active processor.
	ModeCommand
)

func (m Mode) String() string {
	if m == ModeCommand {
		return "command"
	}
	return "input"
}

// request is a processor waiting for, or receiving, its response.
type request struct {
	proc Processor
	done chan struct{}
	err  error
}

// router demultiplexes console lines into log messages and command
// responses. Correlation is textual: a line equal to the command at the
// head of the queue is its echo and starts the command's response.
type router struct {
	publish func(events.LogMessage)

	mu     sync.Mutex
	mode   Mode
	queue  []*request
	active *request
}

func newRouter(publish func(events.LogMessage)) *router {
	return &router{publish: publish}
}

func (r *router) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// enqueue registers proc behind any commands already waiting for echoes.
func (r *router) enqueue(proc Processor) *request {
	req := &request{proc: proc, done: make(chan struct{})}
	r.mu.Lock()
	r.queue = append(r.queue, req)
	r.mu.Unlock()
	return req
}

// feed routes one stripped line.
func (r *router) feed(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeInput {
		if len(r.queue) == 0 || line != r.queue[0].proc.Command() {
			r.publish(events.NewLogMessage(line))
			return
		}
		r.active = r.queue[0]
		r.queue = r.queue[1:]
		r.mode = ModeCommand
	}

	flags := r.active.proc.ParseLine(line)
	if flags.Has(Republish) {
		r.publish(events.NewLogMessage(line))
	}
	if flags.Has(Ready) {
		r.retireLocked(nil)
	}
}

// abandon drops req whether it is queued or active. It reports false if
// req already completed.
func (r *router) abandon(req *request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == req {
		r.mode = ModeInput
		r.active = nil
		return true
	}
	for i, q := range r.queue {
		if q == req {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return true
		}
	}
	return false
}

// fail completes every outstanding request with err.
func (r *router) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.retireLocked(err)
	}
	for _, req := range r.queue {
		req.err = err
		close(req.done)
	}
	r.queue = nil
}

func (r *router) retireLocked(err error) {
	r.active.err = err
	close(r.active.done)
	r.active = nil
	r.mode = ModeInput
}
