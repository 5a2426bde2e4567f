package config

import (
	"fmt"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/brianly1003/warden/internal/domain"
)

// Validate validates the configuration. Failures are
// *domain.ValidationError and match domain.ErrConfiguration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server, &cfg.Watchdog); err != nil {
		return err
	}

	switch cfg.Server.Backend {
	case "rcon":
		if err := validateRcon(&cfg.Rcon); err != nil {
			return err
		}
		if err := validateBatch(&cfg.Batch); err != nil {
			return err
		}
		if err := validateLogFile(&cfg.LogFile); err != nil {
			return err
		}
	case "console":
		if err := validateConsole(&cfg.Console); err != nil {
			return err
		}
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if cfg.Loop.IntervalMS < 1 {
		return domain.NewValidationError("loop.interval_ms", "must be at least 1")
	}

	return nil
}

func validateServer(cfg *ServerConfig, wd *WatchdogConfig) error {
	if !slices.Contains(Backends, cfg.Backend) {
		return domain.NewValidationError("server.backend",
			fmt.Sprintf("must be one of %s, got %q", strings.Join(Backends, ", "), cfg.Backend))
	}
	if wd.Enabled {
		if strings.TrimSpace(cfg.ProcessImage) == "" {
			return domain.NewValidationError("server.process_image", "required when the watchdog is enabled")
		}
		if wd.IntervalMS < 1 {
			return domain.NewValidationError("watchdog.interval_ms", "must be at least 1")
		}
	}
	return nil
}

func validateRcon(cfg *RconConfig) error {
	if err := validateHostPort(cfg.Address, "rcon.address"); err != nil {
		return err
	}
	if cfg.BindAddress != "" {
		if err := validateHostPort(cfg.BindAddress, "rcon.bind_address"); err != nil {
			return err
		}
	}
	if cfg.Password == "" {
		return domain.NewValidationError("rcon.password", "password is required (set WARDEN_RCON_PASSWORD to keep it out of the file)")
	}
	if strings.ContainsAny(cfg.Password, " \"\n") {
		return domain.NewValidationError("rcon.password", "must not contain spaces, quotes or newlines")
	}

	positive := []struct {
		field string
		value int
	}{
		{"rcon.chunk_timeout_ms", cfg.ChunkTimeoutMS},
		{"rcon.timeout_ms", cfg.TimeoutMS},
		{"rcon.listing_timeout_ms", cfg.ListingTimeoutMS},
		{"rcon.map_change_timeout_ms", cfg.MapChangeTimeoutMS},
		{"rcon.max_packet_size", cfg.MaxPacketSize},
		{"rcon.chat_chunk", cfg.ChatChunk},
	}
	for _, p := range positive {
		if p.value < 1 {
			return domain.NewValidationError(p.field, "must be at least 1")
		}
	}
	if cfg.ChunkTimeoutMS > cfg.TimeoutMS {
		return domain.NewValidationError("rcon.chunk_timeout_ms", "must not exceed rcon.timeout_ms")
	}

	if cfg.RateLimit < 0 {
		return domain.NewValidationError("rcon.rate_limit", "must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateWindowMS < 1 {
		return domain.NewValidationError("rcon.rate_window_ms", "must be at least 1 when rate limiting")
	}
	return nil
}

// validateHostPort accepts host:port or a bare host, which gets the
// default port.
func validateHostPort(addr, field string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return domain.NewValidationError(field, "address is required")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		if strings.Contains(err.Error(), "missing port") {
			return nil
		}
		return domain.NewValidationError(field, fmt.Sprintf("invalid address %q: %v", addr, err))
	}
	if host == "" {
		return domain.NewValidationError(field, "host is required")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return domain.NewValidationError(field, fmt.Sprintf("port must be between 1 and 65535, got %q", port))
	}
	return nil
}

func validateBatch(cfg *BatchConfig) error {
	if cfg.VarName == "" || strings.ContainsAny(cfg.VarName, " ;\"") {
		return domain.NewValidationError("batch.var_name", "must be a single word")
	}
	overhead := len(cfg.VarName) + len(";unset "+cfg.VarName)
	if cfg.MaxVarSize <= overhead {
		return domain.NewValidationError("batch.max_var_size",
			fmt.Sprintf("must exceed %d to leave room for commands", overhead))
	}
	if cfg.DelayMS < 0 {
		return domain.NewValidationError("batch.delay_ms", "must not be negative")
	}
	return nil
}

func validateLogFile(cfg *LogFileConfig) error {
	if cfg.Path == "" {
		return domain.NewValidationError("logfile.path", "log file path is required for the rcon backend")
	}
	if !slices.Contains(Encodings, cfg.Encoding) {
		return domain.NewValidationError("logfile.encoding",
			fmt.Sprintf("must be one of %s, got %q", strings.Join(Encodings, ", "), cfg.Encoding))
	}
	if cfg.SessionMarker == "" {
		return domain.NewValidationError("logfile.session_marker", "must not be empty")
	}
	for _, pattern := range cfg.BacklogFilters {
		if _, err := regexp.Compile(pattern); err != nil {
			return domain.NewValidationError("logfile.backlog_filters", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
		}
	}
	if cfg.PollIntervalMS < 1 {
		return domain.NewValidationError("logfile.poll_interval_ms", "must be at least 1")
	}
	return nil
}

func validateConsole(cfg *ConsoleConfig) error {
	if strings.TrimSpace(cfg.Executable) == "" {
		return domain.NewValidationError("console.executable", "server executable is required for the console backend")
	}
	if cfg.GracePeriodMS < 0 {
		return domain.NewValidationError("console.grace_period_ms", "must not be negative")
	}
	if cfg.CommandTimeoutMS < 1 {
		return domain.NewValidationError("console.command_timeout_ms", "must be at least 1")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(cfg.Level)) {
		return domain.NewValidationError("logging.level",
			fmt.Sprintf("must be one of %s, got %q", strings.Join(validLevels, ", "), cfg.Level))
	}
	if cfg.Format != "console" && cfg.Format != "json" {
		return domain.NewValidationError("logging.format", fmt.Sprintf("must be console or json, got %q", cfg.Format))
	}
	return nil
}
