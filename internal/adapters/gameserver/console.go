package gameserver

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/adapters/console"
	"github.com/brianly1003/warden/internal/adapters/rcon"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/revolver"
)

// userInfoHeaderLines is the "userinfo" title and its rule.
const userInfoHeaderLines = 2

// commandRunner is the part of console.Console the facade drives.
type commandRunner interface {
	Open(ctx context.Context) error
	Close() error
	Terminate() error
	Closed() bool
	Execute(ctx context.Context, proc console.Processor) ([]string, error)
}

// consoleServer owns the server process and talks to it through its
// console. Every line that is not a command response is a log line.
type consoleServer struct {
	console   commandRunner
	messages  *revolver.Revolver
	hub       ports.EventHub
	prompt    string
	quit      string
	chatChunk int

	closing atomic.Bool
}

func (s *consoleServer) Backend() ports.Backend { return ports.BackendConsole }

func (s *consoleServer) Open(ctx context.Context) error {
	if err := s.console.Open(ctx); err != nil {
		return err
	}
	log.Info().Msg("console server interface opened")
	s.publish(events.NewInterfaceOpenedEvent(string(ports.BackendConsole)))
	return nil
}

// Close shuts the server down, waiting for the shell prompt if the server
// runs under a wrapper that hands the terminal back.
func (s *consoleServer) Close() error {
	wasOpen := !s.console.Closed()
	s.closing.Store(true)
	defer s.closing.Store(false)

	promptSeen := false
	if wasOpen && s.quit != "" && s.prompt != "" {
		_, err := s.console.Execute(context.Background(), console.NewPromptProcessor(s.quit, s.prompt))
		promptSeen = err == nil
		if err != nil && !errors.Is(err, domain.ErrChildProcessExited) {
			log.Debug().Err(err).Msg("shutdown did not return to the prompt")
		}
	}

	// The quit command already went out when the prompt came back.
	closeConsole := s.console.Close
	if promptSeen {
		closeConsole = s.console.Terminate
	}
	if err := closeConsole(); err != nil {
		return err
	}
	if wasOpen {
		log.Info().Msg("console server interface closed")
		s.publish(events.NewInterfaceClosedEvent(string(ports.BackendConsole), "closed"))
	}
	return nil
}

func (s *consoleServer) Closed() bool {
	return s.console.Closed()
}

// childExited runs on the console reader when the server dies on its own.
func (s *consoleServer) childExited() {
	if s.closing.Load() {
		return
	}
	log.Warn().Msg("server process exited, console interface closed")
	s.publish(events.NewInterfaceClosedEvent(string(ports.BackendConsole), domain.ErrChildProcessExited.Error()))
}

func (s *consoleServer) GetMessages() []events.LogMessage {
	return s.messages.Drain()
}

func (s *consoleServer) Say(message string) {
	for _, chunk := range rcon.SplitText(message, s.chatChunk) {
		s.fire(sayCommand(chunk))
	}
}

func (s *consoleServer) BigText(message string) {
	s.fire(bigTextCommand(message))
}

func (s *consoleServer) Tell(slot int, message string) {
	for _, chunk := range rcon.SplitText(message, s.chatChunk) {
		s.fire(tellCommand(slot, chunk))
	}
}

func (s *consoleServer) GetVar(name string) (string, bool) {
	if !validVarName(name) {
		return "", false
	}
	lines, ok := s.run(console.NewEchoProcessor(name))
	if !ok {
		return "", false
	}
	return ParseCvarValue(name, strings.Join(lines, "\n"))
}

func (s *consoleServer) SetVar(name, value string) {
	if !validVarName(name) {
		log.Warn().Str("name", name).Msg("refusing to set invalid variable name")
		return
	}
	s.fire(setCommand(name, value))
}

func (s *consoleServer) Status() *ports.ServerStatus {
	lines, ok := s.run(console.NewBlankLineProcessor("status"))
	if !ok {
		return nil
	}
	return ParseStatus(strings.Join(lines, "\n"))
}

func (s *consoleServer) ListVars() map[string]string {
	lines, ok := s.run(console.NewSummaryProcessor("cvarlist", "total cvars"))
	if !ok {
		return map[string]string{}
	}
	return ParseCvarList(strings.Join(lines, "\n"))
}

func (s *consoleServer) PlayerInfo(slot int) map[string]string {
	lines, ok := s.run(console.NewRecordProcessor("dumpuser "+strconv.Itoa(slot), userInfoHeaderLines))
	if !ok {
		return map[string]string{}
	}
	return parseRecord(lines)
}

// ChangeMap returns once the console has taken the command. Level loading
// output then arrives as ordinary log lines.
func (s *consoleServer) ChangeMap(name string) bool {
	if !validVarName(name) {
		return false
	}
	_, ok := s.run(console.NewSilentProcessor(mapCommand(name)))
	return ok
}

func (s *consoleServer) Kick(slot int, reason string) {
	s.fire(kickCommand(slot, reason))
}

func (s *consoleServer) Ban(slot int, reason string) {
	s.fire(banCommand(slot, reason))
}

func (s *consoleServer) Mute(slot int, seconds int) {
	s.fire(muteCommand(slot, seconds))
}

// Execute runs commands one at a time; the console has no batching.
func (s *consoleServer) Execute(commands []string) error {
	if s.console.Closed() {
		return domain.ErrInterfaceClosed
	}
	for _, c := range commands {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, err := s.console.Execute(context.Background(), console.NewSilentProcessor(c)); err != nil {
			if errors.Is(err, domain.ErrInterfaceClosed) || errors.Is(err, domain.ErrChildProcessExited) {
				return domain.ErrInterfaceClosed
			}
			log.Warn().Err(err).Str("command", c).Msg("batch command failed")
		}
	}
	return nil
}

func (s *consoleServer) Raw(command string) string {
	if strings.TrimSpace(command) == "" {
		return ""
	}
	lines, _ := s.run(console.NewEchoProcessor(command))
	return strings.Join(lines, "\n")
}

// run executes proc and degrades every failure to "no answer".
func (s *consoleServer) run(proc console.Processor) ([]string, bool) {
	lines, err := s.console.Execute(context.Background(), proc)
	if err != nil {
		log.Debug().Err(err).Str("command", proc.Command()).Msg("console command failed")
		return nil, false
	}
	return lines, true
}

// fire issues a command and waits only for its echo.
func (s *consoleServer) fire(command string) {
	s.run(console.NewSilentProcessor(command))
}

func (s *consoleServer) publish(e events.Event) {
	if s.hub != nil {
		s.hub.Publish(e)
	}
}

var _ ports.ServerInterface = (*consoleServer)(nil)
