package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brianly1003/warden/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage warden configuration.

Without subcommands, shows the current effective configuration.

Examples:
  warden config              # Show current config
  warden config init         # Create config file with defaults
  warden config path         # Show config file location
  warden config get <key>    # Get a config value
  warden config set <key> <value>  # Set a config value`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		printConfig(cfg)
		return nil
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings.

By default, creates ~/.warden/config.yaml.
Use --local to create ./config.yaml in the current directory.

Examples:
  warden config init          # Create ~/.warden/config.yaml
  warden config init --local  # Create ./config.yaml
  warden config init --force  # Overwrite existing file`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	RunE:  runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  warden config get server.backend
  warden config get rcon.address
  warden config get logfile.backlog_filters`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key.

Creates the config file if it doesn't exist.
Keys use dot notation to access nested values.

Examples:
  warden config set server.backend console
  warden config set rcon.timeout_ms 3000
  warden config set watchdog.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.warden/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	content, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to serialize defaults: %w", err)
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), content...), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Set rcon.password and logfile.path (or console.executable) before starting.")
	return nil
}

const configHeader = `# warden configuration
# Keys can be overridden with WARDEN_<SECTION>_<KEY> environment variables.

`

func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}

	locations := []string{
		"./config.yaml",
		filepath.Join(configDir, "config.yaml"),
		"/etc/warden/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}

	fmt.Printf("\nConfig directory: %s\n", configDir)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if _, err := getConfigValue(config.Default(), key); err != nil {
		return err
	}

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// getConfigValue looks key up in cfg through its yaml field names.
func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(content, &tree); err != nil {
		return nil, err
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid key: %s", key)
		}
		if current, ok = m[part]; !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	if _, ok := current.(map[string]interface{}); ok {
		return nil, fmt.Errorf("invalid key: %s is a section", key)
	}
	return current, nil
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(value)
	return nil
}

func parseValue(value string) interface{} {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if strings.Contains(value, ",") {
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		return items
	}
	return value
}
