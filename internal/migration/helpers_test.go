package migration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens an empty SQLite file with foreign keys enforced. A single
// connection makes connection-scoped pragmas observable from the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newTestRunner builds a runner with a silent logger.
func newTestRunner(db *sql.DB, registry *Registry, opts ...Option) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(db, registry, append([]Option{WithLogger(logger)}, opts...)...)
}

// execUnit returns a unit executing statements.
func execUnit(name string, statements ...string) Unit {
	return Unit{
		Name: name,
		Up: func(ctx context.Context, tx *Tx) error {
			return tx.Exec(ctx, statements...)
		},
	}
}

func mustExec(t *testing.T, db *sql.DB, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
}

func records(t *testing.T, db *sql.DB) []Record {
	t.Helper()
	recs, err := appliedRecords(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to read tracking table: %v", err)
	}
	return recs
}

func recordNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	var names []string
	for _, rec := range records(t, db) {
		names = append(names, rec.Name)
	}
	return names
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func rowCount(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + quoteIdent(table)).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func foreignKeysOn(t *testing.T, db *sql.DB) bool {
	t.Helper()
	on, err := foreignKeysEnabled(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to read foreign_keys: %v", err)
	}
	return on
}

// steppingClock returns a clock advancing by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}
