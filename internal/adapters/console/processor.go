package console

import (
	"regexp"
	"strings"
)

// Flags is the result of feeding one line to a Processor.
type Flags uint8

const (
	// Ready means the processor has its full response and retires.
	Ready Flags = 1 << iota
	// Republish means the line should also be published as a log line.
	Republish
)

// Has reports whether all bits of flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Processor collects the response to one console command. The first line
// it sees is the echo of its own command.
type Processor interface {
	Command() string
	ParseLine(line string) Flags
	IsReady() bool
	Response() []string
}

// stepFunc handles one line after the echo.
type stepFunc func(p *processor, line string) Flags

// processor is the single Processor implementation; each command kind
// supplies its own completion step.
type processor struct {
	command string
	lines   []string
	echoed  bool
	ready   bool
	step    stepFunc
}

func newProcessor(command string, step stepFunc) *processor {
	return &processor{command: command, step: step}
}

func (p *processor) Command() string { return p.command }

func (p *processor) IsReady() bool { return p.ready }

// Response returns the collected lines, never nil.
func (p *processor) Response() []string {
	if p.lines == nil {
		return []string{}
	}
	return p.lines
}

func (p *processor) ParseLine(line string) Flags {
	if p.ready {
		return Ready
	}
	if !p.echoed {
		p.echoed = true
		if p.step == nil {
			p.ready = true
			return Ready
		}
		return 0
	}
	flags := p.step(p, line)
	if flags.Has(Ready) {
		p.ready = true
	}
	return flags
}

func (p *processor) collect(line string) {
	p.lines = append(p.lines, line)
}

// NewSilentProcessor completes on the echo itself, for commands that
// print nothing.
func NewSilentProcessor(command string) Processor {
	return newProcessor(command, nil)
}

// NewEchoProcessor completes on the line right after the echo, which is
// its whole response.
func NewEchoProcessor(command string) Processor {
	return newProcessor(command, func(p *processor, line string) Flags {
		p.collect(line)
		return Ready
	})
}

// NewBlankLineProcessor collects a status or diagnostic dump terminated by
// an empty line.
func NewBlankLineProcessor(command string) Processor {
	return NewPredicateProcessor(command, func(line string) bool {
		return strings.TrimSpace(line) == ""
	})
}

// NewSummaryProcessor collects a listing that ends with a summary line
// containing token. The summary line is part of the response and is
// republished.
func NewSummaryProcessor(command, token string) Processor {
	return newProcessor(command, func(p *processor, line string) Flags {
		p.collect(line)
		if strings.Contains(line, token) {
			return Ready | Republish
		}
		return 0
	})
}

// NewPromptProcessor collects output until the shell prompt reappears.
// Used for shutdown, where the server hands the terminal back.
func NewPromptProcessor(command, prompt string) Processor {
	return NewPredicateProcessor(command, func(line string) bool {
		return strings.HasPrefix(strings.TrimSpace(line), prompt)
	})
}

var recordLinePattern = regexp.MustCompile(`^\s*[^:\s][^:]*:(\s|$)`)

// NewRecordProcessor collects a "key: value" record after skipping
// headerLines. The first line of another shape ends the record and is
// republished, since it belongs to the regular log.
func NewRecordProcessor(command string, headerLines int) Processor {
	skipped := 0
	return newProcessor(command, func(p *processor, line string) Flags {
		if skipped < headerLines {
			skipped++
			return 0
		}
		if recordLinePattern.MatchString(line) {
			p.collect(line)
			return 0
		}
		return Ready | Republish
	})
}

// NewPredicateProcessor collects lines until isEnd reports the terminating
// line, which is not part of the response.
func NewPredicateProcessor(command string, isEnd func(line string) bool) Processor {
	return newProcessor(command, func(p *processor, line string) Flags {
		if isEnd(line) {
			return Ready
		}
		p.collect(line)
		return 0
	})
}
