package gameserver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/adapters/logtail"
	"github.com/brianly1003/warden/internal/adapters/rcon"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/revolver"
	"github.com/brianly1003/warden/internal/sync"
)

type rconTimeouts struct {
	request   time.Duration
	listing   time.Duration
	mapChange time.Duration
}

// cvarListComplete waits for the summary and the end of its line.
var cvarListComplete = rcon.All(rcon.Contains("total cvars"), rcon.EndsWithNewline)

// statusComplete waits for the blank line the server prints after the
// last player row. The dump spans several datagrams on a full server.
var statusComplete = rcon.All(rcon.Contains("map:"), rcon.EndsWith("\n\n"))

// rconServer talks to the server over the admin protocol and reads game
// events from its log file.
type rconServer struct {
	messages  *revolver.Revolver
	transport *rcon.Transport
	batcher   *rcon.Batcher
	tailer    *logtail.Tailer
	hub       ports.EventHub
	timeouts  rconTimeouts
	chatChunk int

	mu   sync.Mutex
	open bool
}

func (s *rconServer) Backend() ports.Backend { return ports.BackendRcon }

// Open validates the endpoint, replays the current session's log history
// and starts following the log.
func (s *rconServer) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return domain.ErrInterfaceOpen
	}
	if err := s.transport.Open(); err != nil {
		return err
	}
	if err := s.tailer.Start(s.messages.Append); err != nil {
		return err
	}
	s.open = true

	log.Info().
		Str("address", s.transport.Endpoint().Address).
		Str("log_file", s.tailer.Path()).
		Int("backlog", s.messages.Len()).
		Msg("rcon server interface opened")
	s.publish(events.NewInterfaceOpenedEvent(string(ports.BackendRcon)))
	return nil
}

// Close stops following the log. Lines already tailed stay available to
// GetMessages.
func (s *rconServer) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	s.mu.Unlock()

	s.tailer.Stop()

	stats := s.transport.Stats()
	log.Info().
		Uint64("requests", stats.Requests).
		Uint64("resends", stats.Resends).
		Uint64("timeouts", stats.Timeouts).
		Msg("rcon server interface closed")
	s.publish(events.NewInterfaceClosedEvent(string(ports.BackendRcon), "closed"))
	return nil
}

func (s *rconServer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.open
}

func (s *rconServer) GetMessages() []events.LogMessage {
	return s.messages.Drain()
}

func (s *rconServer) Say(message string) {
	for _, chunk := range rcon.SplitText(message, s.chatChunk) {
		s.fire(sayCommand(chunk))
	}
}

func (s *rconServer) BigText(message string) {
	s.fire(bigTextCommand(message))
}

func (s *rconServer) Tell(slot int, message string) {
	for _, chunk := range rcon.SplitText(message, s.chatChunk) {
		s.fire(tellCommand(slot, chunk))
	}
}

func (s *rconServer) GetVar(name string) (string, bool) {
	if !validVarName(name) || s.Closed() {
		return "", false
	}
	reply, ok := s.transport.Query(name, rcon.EndsWithNewline, s.timeouts.request)
	if !ok {
		return "", false
	}
	return ParseCvarValue(name, reply)
}

func (s *rconServer) SetVar(name, value string) {
	if !validVarName(name) {
		log.Warn().Str("name", name).Msg("refusing to set invalid variable name")
		return
	}
	s.fire(setCommand(name, value))
}

func (s *rconServer) Status() *ports.ServerStatus {
	if s.Closed() {
		return nil
	}
	reply, ok := s.transport.Query("status", statusComplete, s.timeouts.listing)
	if !ok {
		if reply == "" {
			return nil
		}
		log.Debug().Int("bytes", len(reply)).Msg("status dump incomplete at deadline")
	}
	return ParseStatus(reply)
}

func (s *rconServer) ListVars() map[string]string {
	if s.Closed() {
		return map[string]string{}
	}
	reply, ok := s.transport.Query("cvarlist", cvarListComplete, s.timeouts.listing)
	if !ok {
		return map[string]string{}
	}
	return ParseCvarList(reply)
}

func (s *rconServer) PlayerInfo(slot int) map[string]string {
	if s.Closed() {
		return map[string]string{}
	}
	reply, ok := s.transport.Query("dumpuser "+strconv.Itoa(slot), rcon.EndsWithNewline, s.timeouts.request)
	if !ok {
		return map[string]string{}
	}
	return ParseUserInfo(reply)
}

// ChangeMap waits for the server to finish loading, which is when it
// answers.
func (s *rconServer) ChangeMap(name string) bool {
	if !validVarName(name) || s.Closed() {
		return false
	}
	_, ok := s.transport.Query(mapCommand(name), rcon.AnyReply, s.timeouts.mapChange)
	if !ok {
		log.Warn().Str("map", name).Dur("timeout", s.timeouts.mapChange).Msg("map change not confirmed")
	}
	return ok
}

func (s *rconServer) Kick(slot int, reason string) {
	s.fire(kickCommand(slot, reason))
}

func (s *rconServer) Ban(slot int, reason string) {
	s.fire(banCommand(slot, reason))
}

func (s *rconServer) Mute(slot int, seconds int) {
	s.fire(muteCommand(slot, seconds))
}

// Execute batches commands through a scripting variable. Double quotes
// inside commands become single quotes, since the variable value is
// itself quoted.
func (s *rconServer) Execute(commands []string) error {
	if s.Closed() {
		return domain.ErrInterfaceClosed
	}
	cleaned := make([]string, 0, len(commands))
	for _, c := range commands {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, strings.ReplaceAll(c, `"`, `'`))
		}
	}
	return s.batcher.Execute(cleaned)
}

func (s *rconServer) Raw(command string) string {
	if strings.TrimSpace(command) == "" || s.Closed() {
		return ""
	}
	return s.transport.Command(command, rcon.EndsWithNewline, s.timeouts.request)
}

// fire sends a command whose reply carries nothing useful.
func (s *rconServer) fire(command string) {
	if s.Closed() {
		log.Debug().Str("command", command).Msg("dropping command on closed interface")
		return
	}
	s.transport.Command(command, rcon.AnyReply, s.timeouts.request)
}

func (s *rconServer) publish(e events.Event) {
	if s.hub != nil {
		s.hub.Publish(e)
	}
}

var _ ports.ServerInterface = (*rconServer)(nil)
