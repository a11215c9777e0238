package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Tx is the transactional handle a unit receives. It exposes query methods
// only; the runner owns commit and rollback.
type Tx struct {
	tx             *sql.Tx
	unit           string
	logger         *slog.Logger
	batchSize      int
	foreignKeysOff bool
}

var _ Querier = (*Tx)(nil)

// ExecContext executes a statement inside the unit's transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// QueryContext runs a query inside the unit's transaction.
func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query inside the unit's transaction.
func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Exec runs statements in order and stops at the first failure.
func (t *Tx) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// Unit returns the name of the unit being applied.
func (t *Tx) Unit() string {
	return t.unit
}

// Logger returns a logger scoped to the unit.
func (t *Tx) Logger() *slog.Logger {
	return t.logger
}

// ColumnExists reports whether table has a column with the given name.
func (t *Tx) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	return n > 0, nil
}

// inTx runs fn in a transaction on conn. The transaction is committed only if
// fn returns nil; any error or panic rolls it back.
func inTx(ctx context.Context, conn *sql.Conn, fn func(*sql.Tx) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// withoutForeignKeys turns foreign key enforcement off on conn for the duration
// of fn and restores the previous setting on every exit path, panics included.
// It must be called outside any transaction: SQLite silently ignores the pragma
// while one is open, which is verified here.
func withoutForeignKeys(ctx context.Context, conn *sql.Conn, fn func() error) (err error) {
	previous, err := foreignKeysEnabled(ctx, conn)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", err)
	}

	defer func() {
		if !previous {
			return
		}
		// The caller's context may already be done; restoring enforcement must
		// still happen.
		restoreCtx := context.WithoutCancel(ctx)
		if _, fkErr := conn.ExecContext(restoreCtx, `PRAGMA foreign_keys = ON`); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to re-enable foreign keys: %w", fkErr))
		}
	}()

	enabled, err := foreignKeysEnabled(ctx, conn)
	if err != nil {
		return err
	}
	if enabled {
		return errors.New("foreign keys are still enforced; was a transaction left open on the connection?")
	}

	return fn()
}

// foreignKeysEnabled reads the connection's foreign_keys pragma.
func foreignKeysEnabled(ctx context.Context, q Querier) (bool, error) {
	var on int
	if err := q.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
		return false, fmt.Errorf("failed to read foreign_keys pragma: %w", err)
	}
	return on == 1, nil
}

// ForeignKeyCheck runs PRAGMA foreign_key_check over the whole database.
func ForeignKeyCheck(ctx context.Context, q Querier) ([]Violation, error) {
	rows, err := q.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return nil, fmt.Errorf("failed to run foreign key check: %w", err)
	}
	defer rows.Close()

	var violations []Violation
	for rows.Next() {
		var (
			v     Violation
			rowID sql.NullInt64
		)
		if err := rows.Scan(&v.Table, &rowID, &v.Parent, &v.FKIndex); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key violation: %w", err)
		}
		v.RowID = rowID.Int64
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// firstLine shortens a statement for error messages.
func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i] + " ..."
	}
	return stmt
}
