package migration

import (
	"errors"
	"fmt"
	"strings"
)

// Registry and runner sentinel errors.
var (
	// ErrDuplicateUnit is returned when two units share a name.
	ErrDuplicateUnit = errors.New("duplicate migration unit name")

	// ErrInvalidUnit is returned when a unit has no name or no Up procedure.
	ErrInvalidUnit = errors.New("invalid migration unit")

	// ErrMultipleBaselines is returned when more than one unit is marked Baseline.
	ErrMultipleBaselines = errors.New("more than one baseline migration unit")

	// ErrNoBaseline is returned when a legacy database is found but the
	// registry has no baseline unit to mark it with.
	ErrNoBaseline = errors.New("legacy database found but no baseline migration unit is registered")

	// ErrBootstrapLocked is returned when the bootstrap lock table exists at
	// detection time.
	ErrBootstrapLocked = errors.New("legacy bootstrap lock is held")

	// ErrForeignKeysEnabled is returned when Tx.Recreate is called from a unit
	// that did not declare DisableForeignKeys.
	ErrForeignKeysEnabled = errors.New("table recreation requires DisableForeignKeys on the migration unit")

	// ErrRowCountMismatch is returned when a shadow table does not receive
	// exactly the rows selected from its source table.
	ErrRowCountMismatch = errors.New("row count mismatch after table copy")

	// ErrAlreadyRecorded is returned when the tracking table already holds a
	// record for a unit being recorded.
	ErrAlreadyRecorded = errors.New("migration already recorded")

	// ErrNoDown is returned when rolling back a unit without a Down procedure.
	ErrNoDown = errors.New("migration unit has no down procedure")

	// ErrNothingApplied is returned when rolling back with an empty tracking table.
	ErrNothingApplied = errors.New("no applied migrations")

	// ErrUnknownUnit is returned when the tracking table names a unit the
	// registry does not contain.
	ErrUnknownUnit = errors.New("unknown migration unit")
)

// BootstrapError reports that the legacy state of the database could not be
// determined or seeded.
type BootstrapError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("legacy bootstrap: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// ExecutionError reports that a unit's Up procedure, or recording it, failed.
type ExecutionError struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Unit, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Violation is one row reported by PRAGMA foreign_key_check.
type Violation struct {
	Table   string
	RowID   int64
	Parent  string
	FKIndex int
}

// String renders the violation for logs and error messages.
func (v Violation) String() string {
	return fmt.Sprintf("%s(rowid=%d) -> %s (fk %d)", v.Table, v.RowID, v.Parent, v.FKIndex)
}

// IntegrityViolationError reports foreign key violations found after a table
// recreation, or before a run on an already tracked database.
type IntegrityViolationError struct {
	// Unit is empty when the violations were found by the pre-flight check.
	Unit       string
	Violations []Violation
}

// Error implements the error interface.
func (e *IntegrityViolationError) Error() string {
	const maxListed = 5

	listed := e.Violations
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	parts := make([]string, len(listed))
	for i, v := range listed {
		parts[i] = v.String()
	}
	detail := strings.Join(parts, ", ")
	if len(e.Violations) > maxListed {
		detail += fmt.Sprintf(", and %d more", len(e.Violations)-maxListed)
	}

	if e.Unit == "" {
		return fmt.Sprintf("foreign key check found %d violation(s): %s", len(e.Violations), detail)
	}
	return fmt.Sprintf("migration %s left %d foreign key violation(s): %s", e.Unit, len(e.Violations), detail)
}

// Tables returns the distinct child tables holding violations.
func (e *IntegrityViolationError) Tables() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, v := range e.Violations {
		if !seen[v.Table] {
			seen[v.Table] = true
			tables = append(tables, v.Table)
		}
	}
	return tables
}

// AggregateError summarizes a run that halted on a failing unit.
type AggregateError struct {
	// Failed is the name of the first failing unit.
	Failed string
	// Err is the failure, usually an *ExecutionError or *IntegrityViolationError.
	Err error
	// Succeeded lists units applied earlier in the same run, in order.
	Succeeded []string
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if len(e.Succeeded) == 0 {
		return fmt.Sprintf("migrations halted at %s (none applied in this run): %v", e.Failed, e.Err)
	}
	return fmt.Sprintf("migrations halted at %s (applied in this run: %s): %v",
		e.Failed, strings.Join(e.Succeeded, ", "), e.Err)
}

// Unwrap returns the first failure.
func (e *AggregateError) Unwrap() error {
	return e.Err
}

// InvalidValueError reports a backfill value that is neither legacy nor
// canonical.
type InvalidValueError struct {
	Table  string
	Column string
	Key    int64
	Value  string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q in %s.%s (key %d)", e.Value, e.Table, e.Column, e.Key)
}
