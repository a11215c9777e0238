package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// TrackingTable records applied migration units.
	TrackingTable = "migrations"

	// LockTable exists only while a legacy bootstrap transaction is open.
	LockTable = "migrations_lock"
)

const createTrackingTableSQL = `CREATE TABLE IF NOT EXISTS ` + TrackingTable + ` (
	name TEXT NOT NULL PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

const createLockTableSQL = `CREATE TABLE ` + LockTable + ` (
	id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
	locked_at TEXT NOT NULL
)`

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the tracking code
// needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Record is one row of the tracking table.
type Record struct {
	Name      string
	AppliedAt string
}

// BootstrapState describes what the runner found before doing anything.
type BootstrapState struct {
	HasDomainTables  bool
	HasTrackingTable bool
	LockHeld         bool
}

// Legacy reports whether the database predates migration tracking.
func (s BootstrapState) Legacy() bool {
	return s.HasDomainTables && !s.HasTrackingTable
}

// Detect inspects the live schema once.
func Detect(ctx context.Context, q Querier) (BootstrapState, error) {
	tables, err := tableNames(ctx, q)
	if err != nil {
		return BootstrapState{}, &BootstrapError{Op: "list tables", Err: err}
	}

	var state BootstrapState
	for _, name := range tables {
		switch name {
		case TrackingTable:
			state.HasTrackingTable = true
		case LockTable:
			state.LockHeld = true
		default:
			state.HasDomainTables = true
		}
	}
	return state, nil
}

// HasDomainTables reports whether any table other than SQLite internals and
// the tracking tables exists.
func HasDomainTables(ctx context.Context, q Querier) (bool, error) {
	state, err := Detect(ctx, q)
	if err != nil {
		return false, err
	}
	return state.HasDomainTables, nil
}

// HasTrackingTable reports whether the tracking table exists.
func HasTrackingTable(ctx context.Context, q Querier) (bool, error) {
	state, err := Detect(ctx, q)
	if err != nil {
		return false, err
	}
	return state.HasTrackingTable, nil
}

// tableNames lists user tables in creation order, skipping sqlite_* internals.
func tableNames(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sqlite_master: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ensureTrackingTable creates the tracking table if it is missing.
func ensureTrackingTable(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, createTrackingTableSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", TrackingTable, err)
	}
	return nil
}

// appliedRecords returns every tracking record sorted by name.
func appliedRecords(ctx context.Context, q Querier) ([]Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, applied_at FROM `+TrackingTable+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", TrackingTable, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// appliedSet returns the names of applied units.
func appliedSet(ctx context.Context, q Querier) (map[string]bool, error) {
	records, err := appliedRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.Name] = true
	}
	return set, nil
}

// recordApplied inserts a tracking record.
func recordApplied(ctx context.Context, q Querier, name, appliedAt string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO `+TrackingTable+` (name, applied_at) VALUES (?, ?)`, name, appliedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyRecorded, name)
		}
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return nil
}

// deleteRecord removes a tracking record. Only manual rollbacks use it.
func deleteRecord(ctx context.Context, q Querier, name string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM `+TrackingTable+` WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete migration record %s: %w", name, err)
	}
	return nil
}

// isConstraintViolation reports whether err is a SQLite primary key or unique
// constraint failure.
func isConstraintViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
