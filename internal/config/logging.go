package config

import "assistbot/internal/logging"

// ValidLevels lists accepted logging.level values.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`       // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"` // one JSON object per line
	DebugMode  bool            `yaml:"debug_mode"`  // Master toggle - false = no logging (production)
	Categories map[string]bool `yaml:"categories"`  // Per-category toggles
}

// Options converts the config into logging package options.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		JSONFormat: c.JSONFormat,
		Categories: c.Categories,
	}
}
