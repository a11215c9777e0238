package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/offerwatch/internal/database"
	"github.com/nao1215/offerwatch/internal/migration"
)

// NewRollbackCmd creates the rollback command.
func NewRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied schema migration",
		Long: `Rollback reverts the most recently applied migration and removes its
record, so the next start applies it again.

Only migrations that create new objects can be reverted. Migrations that
rewrite or drop data have no way back; restore a backup instead.

Stop every running offerwatch process first: they would migrate the database
forward again on their next start.`,
		Args: cobra.NoArgs,
		RunE: runRollbackCmd,
	}
}

// runRollbackCmd executes the rollback command.
func runRollbackCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dbPath := database.Path(cfg.DBDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", dbPath, errDatabaseMissing)
	}

	opts := databaseOptions(cfg, logger)
	opts.CreateIfNotExists = false
	db, err := database.OpenSQL(cfg.DBDir, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	name, err := database.NewRunner(db, opts).RollbackLast(ctx)
	switch {
	case errors.Is(err, migration.ErrNoDown):
		return fmt.Errorf("%w: restore a backup to undo it", err)
	case err != nil:
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s\n", name)
	return nil
}
