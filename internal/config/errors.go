package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() to tell which setting is wrong.
var (
	// ErrNoDBDir is returned when the database directory is empty.
	ErrNoDBDir = errors.New("no database directory specified: use --db-dir or database.dir")

	// ErrInvalidBatchSize is returned when the backfill batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidBusyTimeout is returned when the busy timeout is negative.
	ErrInvalidBusyTimeout = errors.New("invalid busy timeout: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
