package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ShadowSuffix is appended to a target table name to name its shadow table.
const ShadowSuffix = "__shadow"

// ColumnCopy maps one column of the new table to an expression over the
// source row.
type ColumnCopy struct {
	// Name is the column in the new table.
	Name string
	// Expr is evaluated against the source table. Empty means the source
	// column with the same name.
	Expr string
}

// Col copies a column unchanged.
func Col(name string) ColumnCopy {
	return ColumnCopy{Name: name}
}

// ColExpr fills a column from an expression.
func ColExpr(name, expr string) ColumnCopy {
	return ColumnCopy{Name: name, Expr: expr}
}

// TableRecreation describes one table rebuilt by Tx.Recreate.
type TableRecreation struct {
	// Table is the existing table.
	Table string

	// Target is the final table name. Empty means Table.
	Target string

	// Create is the CREATE TABLE statement of the new shape with a single %s
	// placeholder where the (quoted) table name goes. It is not a format
	// string: other % sequences are kept verbatim.
	Create string

	// Columns lists every column to fill. Columns left out take their DEFAULT.
	Columns []ColumnCopy

	// Filter is an optional WHERE condition over the source table. Rows it
	// excludes are intentionally discarded; the row count check accounts for
	// them.
	Filter string

	// Indexes are statements run after the new table takes its final name.
	// Indexes of the old table disappear with it.
	Indexes []string
}

func (r TableRecreation) target() string {
	if r.Target != "" {
		return r.Target
	}
	return r.Table
}

func (r TableRecreation) shadow() string {
	return r.target() + ShadowSuffix
}

func (r TableRecreation) validate() error {
	switch {
	case r.Table == "":
		return errors.New("table recreation has no source table")
	case strings.Count(r.Create, "%s") != 1:
		return fmt.Errorf("create statement for %s must contain exactly one %%s placeholder", r.target())
	case len(r.Columns) == 0:
		return fmt.Errorf("table recreation of %s lists no columns", r.Table)
	}
	for _, c := range r.Columns {
		if c.Name == "" {
			return fmt.Errorf("table recreation of %s has an unnamed column", r.Table)
		}
	}
	return nil
}

// createStatement substitutes the quoted shadow name into Create. Other %
// sequences, such as strftime formats, are left alone.
func (r TableRecreation) createStatement() string {
	return strings.Replace(r.Create, "%s", quoteIdent(r.shadow()), 1)
}

// copyStatement builds the INSERT ... SELECT with explicit column lists.
func (r TableRecreation) copyStatement() string {
	names := make([]string, len(r.Columns))
	exprs := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = quoteIdent(c.Name)
		exprs[i] = c.Expr
		if exprs[i] == "" {
			exprs[i] = quoteIdent(c.Name)
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		quoteIdent(r.shadow()), strings.Join(names, ", "), strings.Join(exprs, ", "), quoteIdent(r.Table))
	if r.Filter != "" {
		stmt += " WHERE " + r.Filter
	}
	return stmt
}

// Recreate rebuilds tables with a new shape. Every shadow table is created and
// filled before any original is dropped; then all originals are dropped and
// all shadows renamed. Re-running after an interrupted attempt is safe because
// leftover shadows are dropped first.
//
// The unit must set DisableForeignKeys; the runner checks referential
// integrity before commit.
func (t *Tx) Recreate(ctx context.Context, tables ...TableRecreation) error {
	if !t.foreignKeysOff {
		return fmt.Errorf("%w (unit %s)", ErrForeignKeysEnabled, t.unit)
	}
	for _, tbl := range tables {
		if err := tbl.validate(); err != nil {
			return err
		}
	}

	for _, tbl := range tables {
		if err := t.buildShadow(ctx, tbl); err != nil {
			return err
		}
	}

	for _, tbl := range tables {
		if _, err := t.tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(tbl.Table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", tbl.Table, err)
		}
	}
	for _, tbl := range tables {
		stmt := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(tbl.shadow()), quoteIdent(tbl.target()))
		if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", tbl.shadow(), tbl.target(), err)
		}
	}
	for _, tbl := range tables {
		if err := t.Exec(ctx, tbl.Indexes...); err != nil {
			return fmt.Errorf("failed to index %s: %w", tbl.target(), err)
		}
	}

	return nil
}

// buildShadow creates and fills the shadow table of tbl and verifies its row
// count.
func (t *Tx) buildShadow(ctx context.Context, tbl TableRecreation) error {
	shadow := tbl.shadow()

	if _, err := t.tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(shadow)); err != nil {
		return fmt.Errorf("failed to drop leftover shadow table %s: %w", shadow, err)
	}
	if _, err := t.tx.ExecContext(ctx, tbl.createStatement()); err != nil {
		return fmt.Errorf("failed to create shadow table %s: %w", shadow, err)
	}
	if _, err := t.tx.ExecContext(ctx, tbl.copyStatement()); err != nil {
		return fmt.Errorf("failed to copy rows from %s into %s: %w", tbl.Table, shadow, err)
	}

	total, err := t.count(ctx, tbl.Table, "")
	if err != nil {
		return err
	}
	expected, err := t.count(ctx, tbl.Table, tbl.Filter)
	if err != nil {
		return err
	}
	copied, err := t.count(ctx, shadow, "")
	if err != nil {
		return err
	}
	if copied != expected {
		return fmt.Errorf("%w: %s has %d rows, %s selected %d", ErrRowCountMismatch, shadow, copied, tbl.Table, expected)
	}

	t.logger.Debug("shadow table ready",
		"table", tbl.Table,
		"shadow", shadow,
		"rows", copied,
		"discarded", total-expected,
	)
	return nil
}

// count returns the number of rows in table, optionally restricted by filter.
func (t *Tx) count(ctx context.Context, table, filter string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + quoteIdent(table)
	if filter != "" {
		query += " WHERE " + filter
	}
	var n int64
	if err := t.tx.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return n, nil
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
