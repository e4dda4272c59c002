package config

import (
	"path/filepath"
	"time"
)

// SQLite driver names as registered with database/sql.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverModernc = "sqlite"  // modernc.org/sqlite (pure Go)
)

// ValidDrivers lists the supported storage drivers.
var ValidDrivers = []string{DriverMattn, DriverModernc}

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	File          string `yaml:"file"`           // relative to the data dir unless absolute
	Watch         bool   `yaml:"watch"`          // reload when another process writes
	WatchDebounce string `yaml:"watch_debounce"` // e.g. "300ms"
}

// DatabasePath resolves the database file against dataDir.
func (s StorageConfig) DatabasePath(dataDir string) string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(dataDir, s.File)
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (s StorageConfig) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(s.WatchDebounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}
