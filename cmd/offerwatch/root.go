package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for offerwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offerwatch",
		Short: "Classified ads watcher with a self-migrating SQLite store",
		Long: `offerwatch keeps scraped classified ads and notification subscriptions
in a SQLite database.

The database schema is versioned. Opening the database applies every pending
migration first, including databases created by releases that did not track
migrations. A failed migration stops startup and leaves the schema as it was
before the failing step.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .offerwatch in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewRollbackCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
