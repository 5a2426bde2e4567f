package ports

import (
	"context"

	"github.com/brianly1003/warden/internal/domain/events"
)

// Backend identifies which channel a ServerInterface talks through.
type Backend string

const (
	// BackendRcon uses the UDP admin protocol plus a tailed log file.
	BackendRcon Backend = "rcon"
	// BackendConsole owns the server process through a pseudo-terminal.
	BackendConsole Backend = "console"
)

// Player is one row of a status query.
type Player struct {
	Slot    int    `json:"slot"`
	Score   int    `json:"score"`
	Ping    int    `json:"ping"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	IsBot   bool   `json:"is_bot"`
}

// ServerStatus is the structured result of a status query.
type ServerStatus struct {
	Map     string   `json:"map"`
	Players []Player `json:"players"`
}

// ServerInterface is the single integration point between the game server
// and the rest of the platform. Implementations are chosen once at
// construction and never inspected by type afterwards.
//
// Only Open surfaces transport errors. Per-request failures degrade to
// empty or zero results, which callers must treat as "unknown".
type ServerInterface interface {
	// Open connects the channel and starts the background reader.
	Open(ctx context.Context) error

	// Close stops the reader and releases the channel.
	Close() error

	// Closed reports whether the interface has been closed, either by
	// Close or because the underlying channel died.
	Closed() bool

	// Backend reports which channel this interface uses.
	Backend() Backend

	// GetMessages drains all lines produced since the previous call.
	// The batch is valid only until the next GetMessages call, which may
	// clear and reuse its backing array; copy anything kept longer.
	GetMessages() []events.LogMessage

	// Say broadcasts a chat message.
	Say(message string)

	// BigText shows a centered announcement.
	BigText(message string)

	// Tell sends a private chat message to one player slot.
	Tell(slot int, message string)

	// GetVar reads a configuration variable. ok is false when the value
	// is unknown (no response or unparsable).
	GetVar(name string) (value string, ok bool)

	// SetVar writes a configuration variable.
	SetVar(name, value string)

	// Status queries the current map and player list. Nil when the
	// server did not answer.
	Status() *ServerStatus

	// ListVars returns every configuration variable. Empty when the
	// server did not answer.
	ListVars() map[string]string

	// PlayerInfo returns one player's userinfo record. Empty when the slot
	// is unused or the server did not answer.
	PlayerInfo(slot int) map[string]string

	// ChangeMap forces a level change. Returns false when the server gave
	// no confirmation within the level-change timeout.
	ChangeMap(name string) bool

	Kick(slot int, reason string)
	Ban(slot int, reason string)
	Mute(slot int, seconds int)

	// Execute runs many commands, batched where the backend supports it.
	// Errors report unusable input (a command too long to batch) or a
	// closed interface, never a lost response.
	Execute(commands []string) error

	// Raw sends one command and returns its textual response.
	Raw(command string) string
}
