package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/offerwatch/internal/config"
	"github.com/nao1215/offerwatch/internal/database"
	"github.com/nao1215/offerwatch/internal/log"
)

// buildConfig creates a Config from defaults, the configuration file and the
// global flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use the defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case explicitConfigPath:
		return nil, fmt.Errorf("config file %s: %w", cfg.ConfigFilePath, config.ErrConfigNotFound)
	}

	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger creates the logger for a command. Colors are used only when w
// is a terminal and NO_COLOR is unset.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose, isTerminal(w) && os.Getenv("NO_COLOR") == "")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// databaseOptions maps the configuration to database options.
func databaseOptions(cfg *config.Config, logger *slog.Logger) database.Options {
	opts := database.DefaultOptions()
	opts.EnableWAL = cfg.EnableWAL
	opts.BusyTimeout = cfg.BusyTimeout
	opts.BatchSize = cfg.BackfillBatchSize
	opts.VerifyIntegrity = cfg.VerifyIntegrity
	opts.Logger = logger
	return opts
}

// setup loads and validates the configuration and creates the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, newLogger(cmd.ErrOrStderr(), cfg), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// A migration interrupted this way rolls back the unit in progress.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// errDatabaseMissing is returned by commands that inspect an existing
// database when there is none.
var errDatabaseMissing = errors.New("no database found; run `offerwatch migrate` to create one")
