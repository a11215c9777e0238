package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/offerwatch/internal/config"
	"github.com/nao1215/offerwatch/internal/database"
	"github.com/nao1215/offerwatch/internal/report"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which schema migrations are applied",
		Long: `Status lists every migration of this build and whether it is applied to
the database. It never changes the database, so it is safe to run while
offerwatch is running.

Examples:
  # Show the status as a table
  offerwatch status

  # Show only pending migrations
  offerwatch status --pending

  # Output JSON for scripts
  offerwatch status --json

  # Output Markdown for an issue
  offerwatch status --markdown > status.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().Bool("pending", false, "List only pending migrations (text output)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	pendingOnly, err := cmd.Flags().GetBool("pending")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	statusReport, err := loadStatus(ctx, cfg, databaseOptions(cfg, logger))
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(cmd.OutOrStdout())
	default:
		writer = report.NewSimpleWriter(cmd.OutOrStdout(), report.WithPendingOnly(pendingOnly))
	}

	if _, err := writer.Write(statusReport); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

// loadStatus reads the migration status of the configured database.
func loadStatus(ctx context.Context, cfg *config.Config, opts database.Options) (*report.StatusReport, error) {
	dbPath := database.Path(cfg.DBDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", dbPath, errDatabaseMissing)
	}

	opts.CreateIfNotExists = false
	db, err := database.OpenSQL(cfg.DBDir, opts)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	status, err := database.NewRunner(db, opts).Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	return report.NewStatusReport(dbPath, status), nil
}
