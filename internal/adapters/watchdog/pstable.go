package watchdog

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// runFunc runs a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// PSTable reads the OS process table with the platform's listing tool:
// ps on Unix, tasklist on Windows.
type PSTable struct {
	run runFunc
}

// NewPSTable creates a process table backed by the system listing tool.
func NewPSTable() *PSTable {
	return &PSTable{run: runCommand}
}

// Lookup implements ports.ProcessTable.
func (t *PSTable) Lookup(ctx context.Context, image string) (int, bool, error) {
	argv := listCommand(image)
	out, err := t.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return 0, false, err
	}
	pid, found := parseListing(out, image)
	return pid, found, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// imageMatches compares a listed process name with the configured image.
// Linux truncates comm to 15 bytes, so a full-length name is a prefix match.
func imageMatches(listed, image string) bool {
	listed = strings.TrimSpace(listed)
	if listed == "" {
		return false
	}
	base := filepath.Base(image)
	if strings.EqualFold(listed, base) || strings.EqualFold(filepath.Base(listed), base) {
		return true
	}
	return len(listed) == 15 && strings.HasPrefix(base, listed)
}
