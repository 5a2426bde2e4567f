package rcon

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/domain"
)

// Batcher defaults.
const (
	DefaultBatchVar     = "wb"
	DefaultMaxVarSize   = 1024
	DefaultBatchTimeout = DefaultTimeout
)

// Executor issues one RCON command and returns its reply.
type Executor interface {
	Command(command string, policy CompletionPolicy, timeout time.Duration) string
}

// BatchOptions configures a Batcher. Zero values select defaults.
type BatchOptions struct {
	VarName     string        // scripting variable holding each chunk
	MaxVarSize  int           // server limit on a variable's value
	SkipCleanup bool          // leave the variable set after the batch
	Delay       time.Duration // pause between chunks
	Timeout     time.Duration // per request
	Clock       clock.Clock
}

// Batcher packs many short commands into a scripting variable and executes
// it with vstr, trading one request per command for two per chunk.
type Batcher struct {
	exec  Executor
	opts  BatchOptions
	clock clock.Clock
}

// NewBatcher creates a batcher sending through exec.
func NewBatcher(exec Executor, opts BatchOptions) *Batcher {
	if opts.VarName == "" {
		opts.VarName = DefaultBatchVar
	}
	if opts.MaxVarSize <= 0 {
		opts.MaxVarSize = DefaultMaxVarSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBatchTimeout
	}
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}
	return &Batcher{exec: exec, opts: opts, clock: c}
}

// Budget is the longest chunk that fits in the variable.
func (b *Batcher) Budget() int {
	budget := b.opts.MaxVarSize - len(b.opts.VarName)
	if !b.opts.SkipCleanup {
		budget -= len(";unset " + b.opts.VarName)
	}
	return budget
}

// Plan groups commands into chunks of "cmd;" fragments. No chunk exceeds
// Budget and concatenating the chunks reproduces the commands in order.
func (b *Batcher) Plan(commands []string) ([]string, error) {
	budget := b.Budget()

	var chunks []string
	var acc strings.Builder
	for _, cmd := range commands {
		if cmd == "" {
			continue
		}
		fragment := cmd + ";"
		if len(fragment) > budget {
			return nil, fmt.Errorf("%w: %d bytes, budget %d: %.40q",
				domain.ErrCommandTooLong, len(fragment), budget, cmd)
		}
		if acc.Len()+len(fragment) > budget {
			chunks = append(chunks, acc.String())
			acc.Reset()
		}
		acc.WriteString(fragment)
	}
	if acc.Len() > 0 {
		chunks = append(chunks, acc.String())
	}
	return chunks, nil
}

// Execute plans commands and runs each chunk with set then vstr, waiting
// for both replies before moving on. The variable is unset afterward
// unless SkipCleanup is set.
func (b *Batcher) Execute(commands []string) error {
	chunks, err := b.Plan(commands)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	name := b.opts.VarName
	for i, chunk := range chunks {
		if i > 0 && b.opts.Delay > 0 {
			b.clock.Sleep(b.opts.Delay)
		}
		b.exec.Command(fmt.Sprintf("set %s \"%s\"", name, chunk), AnyReply, b.opts.Timeout)
		b.exec.Command("vstr "+name, AnyReply, b.opts.Timeout)
	}
	if !b.opts.SkipCleanup {
		b.exec.Command("unset "+name, AnyReply, b.opts.Timeout)
	}

	log.Debug().
		Int("commands", len(commands)).
		Int("chunks", len(chunks)).
		Msg("rcon batch executed")
	return nil
}
