package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/warden/internal/adapters/watchdog"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/hub"
)

var watchImage string

// watchCmd runs the process watchdog on its own.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the server process and print lifecycle changes",
	Long: `Poll the OS process table for the server image and print each
lifecycle transition (existing, unavailable, started, died, restarted).

No server interface is opened.

Examples:
  warden watch
  warden watch --image ioq3ded.x86_64`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchImage, "image", "", "process image name (default server.process_image)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	image := cfg.Server.ProcessImage
	if watchImage != "" {
		image = watchImage
	}

	logLevel := slog.LevelInfo
	zerologLevel := zerolog.WarnLevel
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
		zerologLevel = zerolog.DebugLevel
	}

	// The watchdog itself logs through zerolog.
	zerolog.SetGlobalLevel(zerologLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.Kitchen,
	}))

	eventHub := hub.New()
	if err := eventHub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}
	defer func() { _ = eventHub.Stop() }()

	eventHub.Subscribe(hub.NewProcessSubscriber(hub.NewFuncSubscriber("watch-printer", func(e events.Event) {
		printLifecycle(logger, e)
	})))

	w := watchdog.New(watchdog.NewPSTable(), image, eventHub,
		watchdog.WithInterval(cfg.Watchdog.Interval()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	logger.Info("Watching process", "image", image, "interval", cfg.Watchdog.Interval())

	<-ctx.Done()
	w.Stop()
	logger.Info("Stopped watching", "image", image, "state", w.State().String())
	return nil
}

func printLifecycle(logger *slog.Logger, e events.Event) {
	attrs := []any{"event", string(e.Type())}
	if payload, ok := processPayload(e); ok {
		attrs = append(attrs, "pid", payload.PID)
		if payload.PreviousPID != 0 {
			attrs = append(attrs, "previous_pid", payload.PreviousPID)
		}
	}

	if e.Type() == events.EventTypeProcessDied {
		logger.Warn("Server process lifecycle", attrs...)
		return
	}
	logger.Info("Server process lifecycle", attrs...)
}

func processPayload(e events.Event) (events.ProcessPayload, bool) {
	base, ok := e.(*events.BaseEvent)
	if !ok {
		return events.ProcessPayload{}, false
	}
	payload, ok := base.Payload.(events.ProcessPayload)
	return payload, ok
}
