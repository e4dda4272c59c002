package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"assistbot/internal/config"
	"assistbot/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	dataDir    string
	configPath string
	plainMode  bool

	// Resolved in PersistentPreRunE
	cfg *config.Config

	// Console logger for CLI diagnostics (stderr)
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Personal assistant bot: contacts, birthdays and notes",
	Long: `assistant keeps an address book and a notebook in a local SQLite database.

Run without arguments to start the interactive REPL. Type "help" inside
the REPL for the list of commands.

Data lives in ./.assistant when the current directory is writable,
otherwise in ~/.assistant-bot. Override with --data-dir.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: runREPL,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: ./.assistant or ~/.assistant-bot)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <data-dir>/config.yaml)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "Use the line-mode REPL even on a terminal")

	rootCmd.AddCommand(execCmd, exportCmd, importCmd, configCmd)
}

// setup resolves the data directory, loads config and starts logging.
func setup() error {
	if dataDir == "" {
		dir, err := config.DefaultDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dataDir = dir
	}
	if configPath == "" {
		configPath = config.Path(dataDir)
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Logging.DebugMode = true
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	cfg = loaded

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zapCfg.DisableStacktrace = true
	logger, err = zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := logging.Initialize(filepath.Join(dataDir, "logs"), cfg.Logging.Options()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("data dir %s, config %s, driver %s", dataDir, configPath, cfg.Storage.Driver)
	logger.Debug("configuration resolved",
		zap.String("data_dir", dataDir),
		zap.String("config", configPath),
		zap.String("driver", cfg.Storage.Driver))
	if logging.IsDebugMode() {
		logger.Info("writing debug logs", zap.String("dir", filepath.Join(dataDir, "logs")))
	}
	return nil
}

// cleanup flushes the console logger and closes the category log files.
// It runs whether or not the command succeeded.
func cleanup() {
	if logger != nil {
		_ = logger.Sync()
	}
	logging.CloseAll()
}

func main() {
	os.Exit(run())
}

// run executes the root command and returns the exit code, so deferred
// cleanup finishes before main exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer cleanup()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.BootError("command failed: %v", err)
		return 1
	}
	return 0
}
