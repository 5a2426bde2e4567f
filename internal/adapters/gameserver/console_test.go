package gameserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/brianly1003/warden/internal/adapters/console"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/revolver"
	"github.com/brianly1003/warden/internal/testutil"
)

// scriptedConsole answers each command with canned output, feeding the
// echo first as the real console does.
type scriptedConsole struct {
	mu         sync.Mutex
	open       bool
	replies    map[string][]string
	failWith   error
	commands   []string
	closes     int
	terminates int
}

func newScriptedConsole(replies map[string][]string) *scriptedConsole {
	return &scriptedConsole{replies: replies}
}

func (c *scriptedConsole) Open(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return domain.ErrInterfaceOpen
	}
	c.open = true
	return nil
}

func (c *scriptedConsole) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	return nil
}

func (c *scriptedConsole) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.terminates++
	return nil
}

func (c *scriptedConsole) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.open
}

func (c *scriptedConsole) Execute(_ context.Context, proc console.Processor) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commands = append(c.commands, proc.Command())
	if !c.open {
		return nil, domain.ErrInterfaceClosed
	}
	if c.failWith != nil {
		return nil, c.failWith
	}

	proc.ParseLine(proc.Command())
	for _, line := range c.replies[proc.Command()] {
		if proc.IsReady() {
			break
		}
		proc.ParseLine(line)
	}
	if !proc.IsReady() {
		return nil, domain.ErrCommandTimeout
	}
	return proc.Response(), nil
}

func (c *scriptedConsole) issued() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

func newTestConsoleServer(t *testing.T, c *scriptedConsole, hub ports.EventHub) *consoleServer {
	t.Helper()
	s := &consoleServer{
		console:   c,
		messages:  revolver.New(),
		hub:       hub,
		prompt:    "$",
		quit:      "quit",
		chatChunk: 150,
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestConsoleServer_Queries(t *testing.T) {
	c := newScriptedConsole(map[string][]string{
		"g_gravity": {`"g_gravity" is:"800^7" default:"800^7"`},
		"status": {
			"map: ut4_casa",
			"num score ping name lastmsg address qport rate",
			"--- ----- ---- ---- ------- ------- ----- ----",
			"  0 5 40 Player^7 0 10.0.0.2:27960 1 25000",
			"",
		},
		"cvarlist": {`S   sv_hostname "Casa"`, `    g_gravity "800"`, "2 total cvars"},
		"dumpuser 0": {"userinfo", "--------", "name: Player", "team: RED", "Player entered the game"},
		"serverinfo": {"sv_hostname  Casa"},
	})
	s := newTestConsoleServer(t, c, nil)

	if v, ok := s.GetVar("g_gravity"); !ok || v != "800" {
		t.Errorf("GetVar() = %q, %v, want 800, true", v, ok)
	}

	status := s.Status()
	if status == nil || status.Map != "ut4_casa" || len(status.Players) != 1 {
		t.Errorf("Status() = %+v", status)
	}

	vars := s.ListVars()
	if vars["sv_hostname"] != "Casa" || vars["g_gravity"] != "800" {
		t.Errorf("ListVars() = %v", vars)
	}

	info := s.PlayerInfo(0)
	if len(info) != 2 || info["name"] != "Player" || info["team"] != "RED" {
		t.Errorf("PlayerInfo(0) = %v", info)
	}

	if got := s.Raw("serverinfo"); got != "sv_hostname  Casa" {
		t.Errorf("Raw() = %q", got)
	}
}

func TestConsoleServer_FireAndForget(t *testing.T) {
	c := newScriptedConsole(nil)
	s := newTestConsoleServer(t, c, nil)

	s.Say("hello")
	s.Tell(1, "hi")
	s.BigText("GO")
	s.SetVar("g_gravity", "400")
	s.SetVar("bad;name", "x")
	s.Kick(2, "")
	s.Ban(3, "cheat")
	s.Mute(4, 10)
	if !s.ChangeMap("ut4_casa") {
		t.Error("ChangeMap() = false, want true")
	}

	want := []string{
		`say "hello"`,
		`tell 1 "hi"`,
		`bigtext "GO"`,
		`set g_gravity "400"`,
		"kick 2",
		`ban 3 "cheat"`,
		"mute 4 10",
		"map ut4_casa",
	}
	if got := c.issued(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("issued %q, want %q", got, want)
	}
}

func TestConsoleServer_ExecuteSequential(t *testing.T) {
	c := newScriptedConsole(nil)
	s := newTestConsoleServer(t, c, nil)

	if err := s.Execute([]string{"g_gravity 400", "", "  restart  "}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := c.issued(); strings.Join(got, "|") != "g_gravity 400|restart" {
		t.Errorf("issued %q", got)
	}
}

func TestConsoleServer_FailuresDegrade(t *testing.T) {
	c := newScriptedConsole(nil)
	s := newTestConsoleServer(t, c, nil)
	c.failWith = domain.ErrCommandTimeout

	if _, ok := s.GetVar("g_gravity"); ok {
		t.Error("GetVar() ok after timeout")
	}
	if s.Status() != nil {
		t.Error("Status() non-nil after timeout")
	}
	if vars := s.ListVars(); vars == nil || len(vars) != 0 {
		t.Errorf("ListVars() = %v, want empty non-nil", vars)
	}
	if s.ChangeMap("ut4_casa") {
		t.Error("ChangeMap() = true after timeout")
	}
	if err := s.Execute([]string{"x"}); err != nil {
		t.Errorf("Execute() error = %v, want nil for per-command timeout", err)
	}

	c.failWith = domain.ErrChildProcessExited
	if err := s.Execute([]string{"x"}); !errors.Is(err, domain.ErrInterfaceClosed) {
		t.Errorf("Execute() error = %v, want ErrInterfaceClosed", err)
	}
}

func TestConsoleServer_CloseWaitsForPrompt(t *testing.T) {
	c := newScriptedConsole(map[string][]string{
		"quit": {"----- Server Shutdown -----", "$ "},
	})
	hub := testutil.NewMockEventHub()
	s := newTestConsoleServer(t, c, hub)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := c.issued(); len(got) != 1 || got[0] != "quit" {
		t.Errorf("issued %q, want [quit]", got)
	}
	c.mu.Lock()
	closes, terminates := c.closes, c.terminates
	c.mu.Unlock()
	if closes != 0 || terminates != 1 {
		t.Errorf("closes = %d, terminates = %d, want quit sent once then terminate", closes, terminates)
	}
	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if got := hub.PublishedTypes(); len(got) != 2 || got[0] != events.EventTypeInterfaceOpened || got[1] != events.EventTypeInterfaceClosed {
		t.Errorf("published %v, want opened then closed", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if n := hub.CountType(events.EventTypeInterfaceClosed); n != 1 {
		t.Errorf("interface_closed published %d times, want 1", n)
	}
	if err := s.Execute([]string{"x"}); !errors.Is(err, domain.ErrInterfaceClosed) {
		t.Errorf("Execute() after Close error = %v, want ErrInterfaceClosed", err)
	}
}

func TestConsoleServer_CloseWithoutPromptSendsQuitAgain(t *testing.T) {
	// No prompt comes back, so the console's own close sequence runs.
	c := newScriptedConsole(map[string][]string{
		"quit": {"----- Server Shutdown -----"},
	})
	s := newTestConsoleServer(t, c, nil)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	c.mu.Lock()
	closes, terminates := c.closes, c.terminates
	c.mu.Unlock()
	if closes != 1 || terminates != 0 {
		t.Errorf("closes = %d, terminates = %d, want Close", closes, terminates)
	}
}

func TestConsoleServer_ChildExitPublishes(t *testing.T) {
	hub := testutil.NewMockEventHub()
	s := newTestConsoleServer(t, newScriptedConsole(nil), hub)

	s.childExited()

	if hub.CountType(events.EventTypeInterfaceClosed) != 1 {
		t.Errorf("published %v, want interface_closed", hub.PublishedTypes())
	}
}

func TestConsoleServer_GetMessages(t *testing.T) {
	s := newTestConsoleServer(t, newScriptedConsole(nil), nil)

	s.messages.Append(events.NewLogMessage("ClientConnect: 0"))
	s.messages.Append(events.NewLogMessage("ClientBegin: 0"))

	got := s.GetMessages()
	if len(got) != 2 || got[0].Content != "ClientConnect: 0" || got[1].Content != "ClientBegin: 0" {
		t.Errorf("GetMessages() = %v", got)
	}
	if len(s.GetMessages()) != 0 {
		t.Error("second GetMessages() not empty")
	}
}
