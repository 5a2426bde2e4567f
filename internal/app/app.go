// Package app orchestrates all components of warden.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/adapters/gameserver"
	"github.com/brianly1003/warden/internal/adapters/watchdog"
	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/config"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/hub"
	"github.com/brianly1003/warden/internal/sync"
)

// lifecycleBuffer bounds watchdog events waiting for the next tick.
const lifecycleBuffer = 64

// MessageHandler receives each drained log line on the main loop.
type MessageHandler func(server ports.ServerInterface, msg events.LogMessage)

// LifecycleHandler receives each watchdog event on the main loop.
type LifecycleHandler func(server ports.ServerInterface, event events.Event)

// Option is a functional option for configuring App.
type Option func(*App)

// WithServer replaces the server interface built from config.
func WithServer(s ports.ServerInterface) Option {
	return func(a *App) {
		a.server = s
	}
}

// WithProcessTable replaces the OS process table used by the watchdog.
func WithProcessTable(t ports.ProcessTable) Option {
	return func(a *App) {
		a.table = t
	}
}

// WithClock sets the clock driving the main loop and the watchdog.
func WithClock(c clock.Clock) Option {
	return func(a *App) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithMessageHandler sets the consumer of log lines.
func WithMessageHandler(h MessageHandler) Option {
	return func(a *App) {
		if h != nil {
			a.onMessage = h
		}
	}
}

// WithLifecycleHandler sets the consumer of watchdog events.
func WithLifecycleHandler(h LifecycleHandler) Option {
	return func(a *App) {
		if h != nil {
			a.onLifecycle = h
		}
	}
}

// App is the main application struct that orchestrates all components.
// Its loop is the only caller of GetMessages and the only command issuer.
type App struct {
	cfg     *config.Config
	version string

	hub       *hub.Hub
	server    ports.ServerInterface
	table     ports.ProcessTable
	watchdog  *watchdog.Watchdog
	lifecycle *hub.ChannelSubscriber
	clock     clock.Clock

	onMessage   MessageHandler
	onLifecycle LifecycleHandler

	sessionID string
	startTime time.Time

	messages  atomic.Uint64
	backlog   atomic.Uint64
	processEv atomic.Uint64

	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string, opts ...Option) (*App, error) {
	a := &App{
		cfg:         cfg,
		version:     version,
		hub:         hub.New(),
		clock:       clock.Real(),
		onMessage:   logMessage,
		onLifecycle: logLifecycle,
		sessionID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.server == nil {
		server, err := gameserver.New(cfg, a.hub, gameserver.WithClock(a.clock))
		if err != nil {
			return nil, fmt.Errorf("failed to create server interface: %w", err)
		}
		a.server = server
	}

	if cfg.Watchdog.Enabled {
		if a.table == nil {
			a.table = watchdog.NewPSTable()
		}
		a.watchdog = watchdog.New(a.table, cfg.Server.ProcessImage, a.hub,
			watchdog.WithInterval(cfg.Watchdog.Interval()),
			watchdog.WithClock(a.clock),
		)
	}

	return a, nil
}

// Start opens the server interface and runs the main loop until ctx is
// cancelled or the interface dies. A failure to open is fatal.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = a.clock.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		a.setStopped()
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	a.hub.Subscribe(hub.NewFuncSubscriber("internal-logger", func(e events.Event) {
		log.Trace().
			Str("event_type", string(e.Type())).
			Time("timestamp", e.Timestamp()).
			Msg("event broadcast")
	}))

	a.lifecycle = hub.NewChannelSubscriber("main-loop", lifecycleBuffer)
	a.hub.Subscribe(hub.NewProcessSubscriber(a.lifecycle))

	if err := a.server.Open(ctx); err != nil {
		_ = a.hub.Stop()
		a.setStopped()
		return fmt.Errorf("failed to open %s interface: %w", a.server.Backend(), err)
	}

	if a.watchdog != nil {
		if err := a.watchdog.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to start watchdog")
		}
	}

	log.Info().
		Str("session_id", a.sessionID).
		Str("backend", string(a.server.Backend())).
		Str("version", a.version).
		Msg("warden started")

	err := a.loop(ctx)
	a.shutdown()
	return err
}

// loop drains messages, handles lifecycle events, then sleeps, until ctx
// is done or the interface closes underneath it.
func (a *App) loop(ctx context.Context) error {
	interval := a.cfg.Loop.Interval()
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	for {
		a.Tick()

		if a.server.Closed() {
			log.Error().Str("backend", string(a.server.Backend())).Msg("server interface closed unexpectedly")
			return domain.ErrInterfaceClosed
		}

		select {
		case <-ctx.Done():
			return nil
		case <-a.clock.After(interval):
		}
	}
}

// Tick runs one main loop iteration: one drain, then every pending
// lifecycle event.
func (a *App) Tick() {
	for _, msg := range a.server.GetMessages() {
		if msg.IsBacklog {
			a.backlog.Add(1)
		}
		a.messages.Add(1)
		a.onMessage(a.server, msg)
	}

	if a.lifecycle == nil {
		return
	}
	for _, e := range a.lifecycle.Drain() {
		a.processEv.Add(1)
		a.onLifecycle(a.server, e)
	}
}

// shutdown stops every component. The final drain hands over lines that
// arrived after the last tick.
func (a *App) shutdown() {
	log.Info().Msg("shutting down...")

	if a.watchdog != nil {
		a.watchdog.Stop()
	}
	if err := a.server.Close(); err != nil && !errors.Is(err, domain.ErrInterfaceClosed) {
		log.Error().Err(err).Msg("error closing server interface")
	}
	a.Tick()

	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}

	a.setStopped()
	log.Info().
		Uint64("messages", a.messages.Load()).
		Uint64("backlog", a.backlog.Load()).
		Uint64("process_events", a.processEv.Load()).
		Msg("warden stopped")
}

func (a *App) setStopped() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// IsRunning reports whether Start is in progress.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Server returns the server interface.
func (a *App) Server() ports.ServerInterface {
	return a.server
}

// GetHub returns the event hub.
func (a *App) GetHub() *hub.Hub {
	return a.hub
}

// GetSessionID returns this run's session ID.
func (a *App) GetSessionID() string {
	return a.sessionID
}

// MessageCount returns how many log lines were handed to the handler.
func (a *App) MessageCount() uint64 {
	return a.messages.Load()
}

// UptimeSeconds returns seconds since Start.
func (a *App) UptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(a.clock.Now().Sub(a.startTime).Seconds())
}

func logMessage(_ ports.ServerInterface, msg events.LogMessage) {
	log.Debug().
		Bool("backlog", msg.IsBacklog).
		Str("line", msg.Content).
		Msg("server log")
}

func logLifecycle(server ports.ServerInterface, e events.Event) {
	entry := log.Info()
	if e.Type() == events.EventTypeProcessDied {
		entry = log.Warn()
	}
	entry.
		Str("event_type", string(e.Type())).
		Str("backend", string(server.Backend())).
		Msg("server process lifecycle")
}
