package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brianly1003/warden/internal/adapters/rcon"
	"github.com/brianly1003/warden/internal/config"
	"github.com/brianly1003/warden/internal/domain"
)

var (
	rconAddress  string
	rconPassword string
	rconTimeout  time.Duration
)

// rconCmd sends one command over the rcon protocol and prints the reply.
var rconCmd = &cobra.Command{
	Use:   "rcon <command...>",
	Short: "Send a single rcon command and print the reply",
	Long: `Send a single command to the server over the rcon protocol and print
whatever it answers. No reply within the timeout prints nothing.

Examples:
  warden rcon status
  warden rcon g_gravity
  warden rcon --address 10.0.0.5:27960 say hello`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRcon,
}

func init() {
	rconCmd.Flags().StringVar(&rconAddress, "address", "", "server host:port (default from config)")
	rconCmd.Flags().StringVar(&rconPassword, "password", "", "rcon password (default from config or WARDEN_RCON_PASSWORD)")
	rconCmd.Flags().DurationVar(&rconTimeout, "timeout", 0, "reply deadline (default rcon.listing_timeout_ms)")
}

func runRcon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)

	endpoint := rconEndpoint(cfg)
	if endpoint.Password == "" {
		return domain.NewValidationError("rcon.password", "password is required")
	}

	transport := rcon.NewTransport(endpoint,
		rcon.WithChunkTimeout(time.Duration(cfg.Rcon.ChunkTimeoutMS)*time.Millisecond),
		rcon.WithMaxPacketSize(cfg.Rcon.MaxPacketSize),
	)
	if err := transport.Open(); err != nil {
		return err
	}

	timeout := rconTimeout
	if timeout <= 0 {
		timeout = time.Duration(cfg.Rcon.ListingTimeoutMS) * time.Millisecond
	}

	reply, ok := transport.Query(strings.Join(args, " "), rcon.EndsWithNewline, timeout)
	if reply != "" {
		fmt.Fprintln(cmd.OutOrStdout(), reply)
	}
	if !ok && verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "reply incomplete after %s\n", timeout)
	}
	return nil
}

// rconEndpoint applies flag overrides on top of the configured endpoint.
func rconEndpoint(cfg *config.Config) rcon.Endpoint {
	endpoint := rcon.Endpoint{
		Address:     cfg.Rcon.Address,
		BindAddress: cfg.Rcon.BindAddress,
		Password:    cfg.Rcon.Password,
	}
	if rconAddress != "" {
		endpoint.Address = rconAddress
	}
	if rconPassword != "" {
		endpoint.Password = rconPassword
	}
	return endpoint
}
