// Package gameserver implements ports.ServerInterface over the two
// channels a dedicated server offers: the UDP admin protocol plus its log
// file, or the server's own console on a pseudo-terminal.
package gameserver

import (
	"fmt"
	"time"

	"github.com/brianly1003/warden/internal/adapters/console"
	"github.com/brianly1003/warden/internal/adapters/logtail"
	"github.com/brianly1003/warden/internal/adapters/rcon"
	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/config"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/ports"
	"github.com/brianly1003/warden/internal/revolver"
)

// Option adjusts how New builds the interface. Tests use them to replace
// the network and the clock.
type Option func(*options)

type options struct {
	clock  clock.Clock
	dialer rcon.Dialer
}

// WithClock sets the clock used for timeouts and tail polling.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDialer replaces the UDP dialer of the rcon backend.
func WithDialer(d rcon.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// New builds the ServerInterface selected by cfg.Server.Backend. The
// choice is made here once; callers only ever see the interface.
func New(cfg *config.Config, hub ports.EventHub, opts ...Option) (ports.ServerInterface, error) {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	switch ports.Backend(cfg.Server.Backend) {
	case ports.BackendRcon:
		return newRconServer(cfg, hub, o)
	case ports.BackendConsole:
		return newConsoleServer(cfg, hub, o)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, cfg.Server.Backend)
	}
}

func newRconServer(cfg *config.Config, hub ports.EventHub, o options) (*rconServer, error) {
	tailer, err := logtail.New(cfg.LogFile.Path, logtail.Options{
		Encoding:       cfg.LogFile.Encoding,
		TimestampWidth: cfg.LogFile.TimestampWidth,
		SessionMarker:  cfg.LogFile.SessionMarker,
		BacklogFilters: cfg.LogFile.BacklogFilters,
		PollInterval:   millis(cfg.LogFile.PollIntervalMS),
		Clock:          o.clock,
	})
	if err != nil {
		return nil, err
	}

	topts := []rcon.Option{
		rcon.WithClock(o.clock),
		rcon.WithChunkTimeout(millis(cfg.Rcon.ChunkTimeoutMS)),
		rcon.WithMaxPacketSize(cfg.Rcon.MaxPacketSize),
	}
	if cfg.Rcon.RateLimit > 0 {
		topts = append(topts, rcon.WithRateLimiter(rcon.NewRateLimiter(
			rcon.WithMaxRequests(cfg.Rcon.RateLimit),
			rcon.WithWindow(millis(cfg.Rcon.RateWindowMS)),
			rcon.WithLimiterClock(o.clock),
		)))
	}
	if o.dialer != nil {
		topts = append(topts, rcon.WithDialer(o.dialer))
	}
	transport := rcon.NewTransport(rcon.Endpoint{
		Address:     cfg.Rcon.Address,
		BindAddress: cfg.Rcon.BindAddress,
		Password:    cfg.Rcon.Password,
	}, topts...)

	batcher := rcon.NewBatcher(transport, rcon.BatchOptions{
		VarName:     cfg.Batch.VarName,
		MaxVarSize:  cfg.Batch.MaxVarSize,
		SkipCleanup: cfg.Batch.SkipCleanup,
		Delay:       millis(cfg.Batch.DelayMS),
		Timeout:     millis(cfg.Rcon.TimeoutMS),
		Clock:       o.clock,
	})

	return &rconServer{
		messages:  revolver.New(),
		transport: transport,
		batcher:   batcher,
		tailer:    tailer,
		hub:       hub,
		timeouts: rconTimeouts{
			request:   orDefault(millis(cfg.Rcon.TimeoutMS), rcon.DefaultTimeout),
			listing:   orDefault(millis(cfg.Rcon.ListingTimeoutMS), rcon.ListingTimeout),
			mapChange: orDefault(millis(cfg.Rcon.MapChangeTimeoutMS), rcon.MapChangeTimeout),
		},
		chatChunk: cfg.Rcon.ChatChunk,
	}, nil
}

func newConsoleServer(cfg *config.Config, hub ports.EventHub, o options) (*consoleServer, error) {
	s := &consoleServer{
		messages:  revolver.New(),
		hub:       hub,
		prompt:    cfg.Console.Prompt,
		quit:      cfg.Console.QuitCommand,
		chatChunk: cfg.Rcon.ChatChunk,
	}

	c, err := console.New(console.Options{
		Executable:     cfg.Console.Executable,
		Args:           cfg.Console.Args,
		Dir:            cfg.Console.Dir,
		QuitCommand:    cfg.Console.QuitCommand,
		GracePeriod:    millis(cfg.Console.GracePeriodMS),
		CommandTimeout: millis(cfg.Console.CommandTimeoutMS),
		Sink:           s.messages.Append,
		OnExit:         s.childExited,
		Clock:          o.clock,
	})
	if err != nil {
		return nil, err
	}
	s.console = c
	return s, nil
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
