package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/offerwatch/internal/database"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Migrate creates the database if needed and applies every pending schema
migration. It is what every other start of offerwatch does implicitly.

Databases created before migrations were tracked are detected by their tables:
their original schema is recorded as applied and the remaining migrations run.

Each migration runs in its own transaction. If one fails, the ones before it
stay applied, the failing one is rolled back, and the command exits with an
error naming it. Fix the cause and run migrate again.

Examples:
  # Migrate the database in the default location
  offerwatch migrate

  # Migrate a database in another directory with debug logs
  offerwatch migrate --db-dir /srv/offerwatch -v`,
		Args: cobra.NoArgs,
		RunE: runMigrateCmd,
	}
}

// runMigrateCmd executes the migrate command.
func runMigrateCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBDir, databaseOptions(cfg, logger))
	if err != nil {
		return err
	}
	defer db.Close()

	result := db.Migrations()
	out := cmd.OutOrStdout()
	if result.Bootstrapped {
		fmt.Fprintf(out, "Recorded existing schema as %s\n", strings.Join(result.Seeded, ", "))
	}
	if result.UpToDate {
		fmt.Fprintf(out, "Schema of %s is up to date\n", db.Path())
		return nil
	}
	fmt.Fprintf(out, "Applied %d migration(s) to %s:\n", result.AppliedCount, db.Path())
	for _, o := range result.Outcomes {
		fmt.Fprintf(out, "  %s (%s)\n", o.Name, o.Duration.Round(time.Millisecond))
	}
	return nil
}
