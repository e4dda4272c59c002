package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the data directory.
const FileName = "config.yaml"

// Config holds all assistant configuration.
type Config struct {
	// Persistence
	Storage StorageConfig `yaml:"storage"`

	// Upcoming birthdays report
	Birthdays BirthdaysConfig `yaml:"birthdays"`

	// Interactive UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BirthdaysConfig configures the `birthdays` command.
type BirthdaysConfig struct {
	WindowDays    int  `yaml:"window_days"`    // days ahead to look, inclusive
	ShiftWeekends bool `yaml:"shift_weekends"` // move Sat/Sun congratulations to Monday
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:        DriverMattn,
			File:          "assistant.db",
			Watch:         true,
			WatchDebounce: "300ms",
		},
		Birthdays: BirthdaysConfig{
			WindowDays: 7,
		},
		UI: UIConfig{
			Theme:  ThemeAuto,
			Prompt: "Enter a command: ",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("ASSISTANT_DB"); path != "" {
		c.Storage.File = path
	}
	if driver := os.Getenv("ASSISTANT_DB_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if theme := os.Getenv("ASSISTANT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if v := os.Getenv("ASSISTANT_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = debug
			if debug {
				c.Logging.Level = "debug"
			}
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %q (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.File == "" {
		return fmt.Errorf("storage file must not be empty")
	}
	if c.Birthdays.WindowDays < 0 {
		return fmt.Errorf("birthdays.window_days must not be negative, got %d", c.Birthdays.WindowDays)
	}
	if !slices.Contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid theme: %q (valid: %v)", c.UI.Theme, ValidThemes)
	}
	if !slices.Contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q (valid: %v)", c.Logging.Level, ValidLevels)
	}
	return nil
}

// ============================================================================
// Data directory
// ============================================================================

// LocalDirName is the workspace-local data directory.
const LocalDirName = ".assistant"

// DefaultDataDir returns ./.assistant when it exists or can be created,
// falling back to ~/.assistant-bot.
func DefaultDataDir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, LocalDirName)
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || (os.IsNotExist(err) && writable(cwd)) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".assistant-bot"), nil
}

// Path returns the config file path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".assistant-writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
