package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/warden/internal/app"
	"github.com/brianly1003/warden/internal/config"
)

var (
	backend     string
	logFilePath string
	noWatchdog  bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open the server interface and run the main loop",
	Long: `Open the configured server interface and run the main loop.

Two backends are available:

RCON (default, --backend=rcon):
  - Commands travel as UDP datagrams to the server's rcon port
  - Log lines are read by tailing the server's log file
  - Requires rcon.password and logfile.path

Console (--backend=console):
  - Starts the server executable on a pseudo-terminal
  - Commands are typed into its console and replies read back
  - Requires console.executable

Example:
  warden start
  warden start --backend console
  warden start --log-file ~/.q3a/baseq3/games.log`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&backend, "backend", "", "server backend: rcon or console (default from config)")
	startCmd.Flags().StringVar(&logFilePath, "log-file", "", "server log file tailed by the rcon backend")
	startCmd.Flags().BoolVar(&noWatchdog, "no-watchdog", false, "do not watch the server process")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if backend != "" {
		cfg.Server.Backend = backend
	}
	if logFilePath != "" {
		cfg.LogFile.Path = logFilePath
	}
	if noWatchdog {
		cfg.Watchdog.Enabled = false
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("backend", cfg.Server.Backend).
		Str("process_image", cfg.Server.ProcessImage).
		Bool("watchdog", cfg.Watchdog.Enabled).
		Msg("starting warden")

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("warden stopped")
	return nil
}

// loadConfig reads configuration without validating it; each command
// validates what it uses.
func loadConfig() (*config.Config, error) {
	return config.Read(cfgFile)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Backend:         %s\n", cfg.Server.Backend)
	fmt.Printf("Process Image:   %s\n", cfg.Server.ProcessImage)
	fmt.Printf("RCON Address:    %s\n", cfg.Rcon.Address)
	fmt.Printf("Log File:        %s\n", cfg.LogFile.Path)
	fmt.Printf("Console Exec:    %s\n", cfg.Console.Executable)
	fmt.Printf("Watchdog:        %t\n", cfg.Watchdog.Enabled)
	fmt.Printf("Log Level:       %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:      %s\n", cfg.Logging.Format)
}
