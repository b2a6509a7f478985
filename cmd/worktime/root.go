package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/worktime/config"
	"github.com/warp/worktime/store/sqlite"
	"github.com/warp/worktime/tracker"
	"github.com/warp/worktime/worktime"
	"github.com/warp/worktime/worktime/store"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worktime",
	Short: "worktime - time accounting engine",
	Long: `worktime records START / END events, reconstructs work and break intervals,
and reports daily, weekly and monthly balances against configurable targets.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to serve when no subcommand is provided
		return runServe(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "worktime.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// app is what every command needs: the service over the configured store.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	svc    *tracker.Service
	close  func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	rs, err := cfg.RuleSet()
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	cache, err := worktime.NewDayCache(cfg.Cache.DayEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create day cache: %w", err)
	}

	st, closeStore, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	svc := tracker.New(st, tracker.Config{
		RuleSet: rs,
		Cache:   cache,
		Logger:  logger,
	})
	return &app{cfg: cfg, logger: logger, svc: svc, close: closeStore}, nil
}

func openStorage(cfg config.StorageConfig) (worktime.Store, func() error, error) {
	switch cfg.Type {
	case "memory":
		return store.NewMemory(), func() error { return nil }, nil
	case "sqlite", "":
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
