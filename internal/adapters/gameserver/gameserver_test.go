package gameserver

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/brianly1003/warden/internal/config"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/ports"
)

func TestNew_SelectsBackend(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	cfg := config.Default()
	cfg.Server.Backend = "console"
	cfg.Console.Executable = "sh"

	srv, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Backend() != ports.BackendConsole {
		t.Errorf("Backend() = %q, want console", srv.Backend())
	}
	if !srv.Closed() {
		t.Error("new interface should start closed")
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"console without executable", func(c *config.Config) {
			c.Server.Backend = "console"
		}},
		{"console executable missing", func(c *config.Config) {
			c.Server.Backend = "console"
			c.Console.Executable = "warden-no-such-server-binary"
		}},
		{"rcon without log file", func(c *config.Config) {
			c.LogFile.Path = ""
		}},
		{"rcon bad encoding", func(c *config.Config) {
			c.LogFile.Path = "/tmp/games.log"
			c.LogFile.Encoding = "ebcdic"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			if _, err := New(cfg, nil); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("New() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
