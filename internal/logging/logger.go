// Package logging provides config-driven categorized file logging for the assistant.
// Logs are written to <data-dir>/logs/ with one file per category and day.
// Logging is controlled by debug_mode in config.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryStore    Category = "store"    // SQLite persistence
	CategoryCommands Category = "commands" // Command dispatch and handler errors
	CategoryWatcher  Category = "watcher"  // External change detection
	CategoryExchange Category = "exchange" // Import/export
	CategoryUI       Category = "ui"       // REPL lifecycle
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// Logger writes printf-style messages for one category.
// The zero value and loggers of disabled categories discard everything.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	level     = zapcore.InfoLevel
	optsMu    sync.RWMutex
)

// Initialize sets up the logging directory. Should be called once at startup.
// With DebugMode off this is a no-op and nothing touches the disk.
func Initialize(dir string, o Options) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}

	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}

	CloseAll()

	optsMu.Lock()
	opts = o
	level = lvl
	logsDir = dir
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", lvl)
	return nil
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	optsMu.RLock()
	dir, jsonFormat, lvl := logsDir, opts.JSONFormat, level
	optsMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(file), lvl)

	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// With returns a logger that attaches key/value pairs to every entry.
// It shares the parent's file.
func (l *Logger) With(keysAndValues ...any) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all log files.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CATEGORY SHORTCUTS
// =============================================================================

func Boot(format string, args ...any) {
	Get(CategoryBoot).Info(format, args...)
}

func BootError(format string, args ...any) {
	Get(CategoryBoot).Error(format, args...)
}

func Store(format string, args ...any) {
	Get(CategoryStore).Info(format, args...)
}

func StoreDebug(format string, args ...any) {
	Get(CategoryStore).Debug(format, args...)
}

func StoreError(format string, args ...any) {
	Get(CategoryStore).Error(format, args...)
}

func Commands(format string, args ...any) {
	Get(CategoryCommands).Info(format, args...)
}

func CommandsDebug(format string, args ...any) {
	Get(CategoryCommands).Debug(format, args...)
}

func Watcher(format string, args ...any) {
	Get(CategoryWatcher).Info(format, args...)
}

func WatcherDebug(format string, args ...any) {
	Get(CategoryWatcher).Debug(format, args...)
}

func Exchange(format string, args ...any) {
	Get(CategoryExchange).Info(format, args...)
}

func UI(format string, args ...any) {
	Get(CategoryUI).Info(format, args...)
}

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing operation under category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning when the operation took longer than threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
