// Package config handles configuration management for warden.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Rcon     RconConfig     `mapstructure:"rcon" yaml:"rcon"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Console  ConsoleConfig  `mapstructure:"console" yaml:"console"`
	LogFile  LogFileConfig  `mapstructure:"logfile" yaml:"logfile"`
	Watchdog WatchdogConfig `mapstructure:"watchdog" yaml:"watchdog"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Loop     LoopConfig     `mapstructure:"loop" yaml:"loop"`
}

// ServerConfig selects how warden talks to the game server.
type ServerConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"`             // "rcon" or "console"
	ProcessImage string `mapstructure:"process_image" yaml:"process_image"` // image name the watchdog looks for
}

// RconConfig holds the UDP admin protocol settings.
type RconConfig struct {
	Address            string `mapstructure:"address" yaml:"address"`
	BindAddress        string `mapstructure:"bind_address" yaml:"bind_address"`
	Password           string `mapstructure:"password" yaml:"password"`
	ChunkTimeoutMS     int    `mapstructure:"chunk_timeout_ms" yaml:"chunk_timeout_ms"`
	TimeoutMS          int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	ListingTimeoutMS   int    `mapstructure:"listing_timeout_ms" yaml:"listing_timeout_ms"`
	MapChangeTimeoutMS int    `mapstructure:"map_change_timeout_ms" yaml:"map_change_timeout_ms"`
	MaxPacketSize      int    `mapstructure:"max_packet_size" yaml:"max_packet_size"`
	RateLimit          int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per window; 0 disables
	RateWindowMS       int    `mapstructure:"rate_window_ms" yaml:"rate_window_ms"`
	ChatChunk          int    `mapstructure:"chat_chunk" yaml:"chat_chunk"`
}

// BatchConfig holds the multi-command batching settings.
type BatchConfig struct {
	VarName     string `mapstructure:"var_name" yaml:"var_name"`
	MaxVarSize  int    `mapstructure:"max_var_size" yaml:"max_var_size"`
	SkipCleanup bool   `mapstructure:"skip_cleanup" yaml:"skip_cleanup"`
	DelayMS     int    `mapstructure:"delay_ms" yaml:"delay_ms"`
}

// ConsoleConfig holds the pseudo-terminal backend settings.
type ConsoleConfig struct {
	Executable       string   `mapstructure:"executable" yaml:"executable"`
	Args             []string `mapstructure:"args" yaml:"args"`
	Dir              string   `mapstructure:"dir" yaml:"dir"`
	QuitCommand      string   `mapstructure:"quit_command" yaml:"quit_command"`
	Prompt           string   `mapstructure:"prompt" yaml:"prompt"`
	GracePeriodMS    int      `mapstructure:"grace_period_ms" yaml:"grace_period_ms"`
	CommandTimeoutMS int      `mapstructure:"command_timeout_ms" yaml:"command_timeout_ms"`
}

// LogFileConfig holds the tailed log file settings (rcon backend only).
type LogFileConfig struct {
	Path           string   `mapstructure:"path" yaml:"path"`
	Encoding       string   `mapstructure:"encoding" yaml:"encoding"`
	TimestampWidth int      `mapstructure:"timestamp_width" yaml:"timestamp_width"`
	SessionMarker  string   `mapstructure:"session_marker" yaml:"session_marker"`
	BacklogFilters []string `mapstructure:"backlog_filters" yaml:"backlog_filters"`
	PollIntervalMS int      `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// WatchdogConfig holds process watchdog settings.
type WatchdogConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalMS int  `mapstructure:"interval_ms" yaml:"interval_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LoopConfig holds main loop settings.
type LoopConfig struct {
	IntervalMS int `mapstructure:"interval_ms" yaml:"interval_ms"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply overrides first
// or need only part of the configuration.
func Read(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.warden")
		v.AddConfigPath("/etc/warden")
	}

	// WARDEN_RCON_PASSWORD overrides rcon.password, and so on.
	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A missing config file is fine; defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.backend", "rcon")
	v.SetDefault("server.process_image", DefaultProcessImage)

	v.SetDefault("rcon.address", "127.0.0.1:27960")
	v.SetDefault("rcon.bind_address", "")
	v.SetDefault("rcon.password", "")
	v.SetDefault("rcon.chunk_timeout_ms", 300)
	v.SetDefault("rcon.timeout_ms", 2000)
	v.SetDefault("rcon.listing_timeout_ms", 5000)
	v.SetDefault("rcon.map_change_timeout_ms", 120000)
	v.SetDefault("rcon.max_packet_size", 16384)
	v.SetDefault("rcon.rate_limit", 20)
	v.SetDefault("rcon.rate_window_ms", 1000)
	v.SetDefault("rcon.chat_chunk", 150)

	v.SetDefault("batch.var_name", "wb")
	v.SetDefault("batch.max_var_size", 1024)
	v.SetDefault("batch.skip_cleanup", false)
	v.SetDefault("batch.delay_ms", 0)

	v.SetDefault("console.executable", "")
	v.SetDefault("console.args", []string{})
	v.SetDefault("console.dir", "")
	v.SetDefault("console.quit_command", "quit")
	v.SetDefault("console.prompt", "$")
	v.SetDefault("console.grace_period_ms", 3000)
	v.SetDefault("console.command_timeout_ms", 10000)

	v.SetDefault("logfile.path", "")
	v.SetDefault("logfile.encoding", "utf-8")
	v.SetDefault("logfile.timestamp_width", 7)
	v.SetDefault("logfile.session_marker", "InitGame:")
	v.SetDefault("logfile.backlog_filters", DefaultBacklogFilters)
	v.SetDefault("logfile.poll_interval_ms", 250)

	v.SetDefault("watchdog.enabled", true)
	v.SetDefault("watchdog.interval_ms", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("loop.interval_ms", 50)
}

// postProcess normalizes values that viper hands back verbatim.
func postProcess(cfg *Config) error {
	cfg.Server.Backend = strings.ToLower(strings.TrimSpace(cfg.Server.Backend))
	cfg.LogFile.Encoding = strings.ToLower(strings.TrimSpace(cfg.LogFile.Encoding))

	if cfg.LogFile.Path != "" {
		abs, err := filepath.Abs(expandHome(cfg.LogFile.Path))
		if err != nil {
			return fmt.Errorf("failed to resolve log file path: %w", err)
		}
		cfg.LogFile.Path = abs
	}
	if cfg.Console.Dir != "" {
		abs, err := filepath.Abs(expandHome(cfg.Console.Dir))
		if err != nil {
			return fmt.Errorf("failed to resolve console working directory: %w", err)
		}
		cfg.Console.Dir = abs
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Interval returns the main loop sleep.
func (c LoopConfig) Interval() time.Duration {
	return ms(c.IntervalMS)
}

// Interval returns the watchdog poll interval.
func (c WatchdogConfig) Interval() time.Duration {
	return ms(c.IntervalMS)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// GetConfigDir returns the user config directory for warden.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".warden"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
