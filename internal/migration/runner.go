package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/offerwatch/internal/timefmt"
)

// Runner applies pending units of a registry to a database.
//
// A Runner assumes exclusive access to the database while Run executes; it
// is meant to be called once at process startup, before anything else uses
// the database.
type Runner struct {
	db             *sql.DB
	registry       *Registry
	logger         *slog.Logger
	now            func() time.Time
	batchSize      int
	integrityCheck bool

	lastStamp string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the time source used for applied_at.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithBatchSize sets how many rows backfills read per batch.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithIntegrityCheck toggles the foreign key check run before migrating a
// database that was already tracked. It is on by default.
func WithIntegrityCheck(enabled bool) Option {
	return func(r *Runner) {
		r.integrityCheck = enabled
	}
}

// NewRunner returns a Runner for registry on db.
func NewRunner(db *sql.DB, registry *Registry, opts ...Option) *Runner {
	r := &Runner{
		db:             db,
		registry:       registry,
		logger:         slog.Default(),
		now:            time.Now,
		batchSize:      DefaultBatchSize,
		integrityCheck: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome reports one attempted unit.
type Outcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Result summarizes a run.
type Result struct {
	// AppliedCount is the number of units applied in this run.
	AppliedCount int
	// UpToDate is true when nothing was pending.
	UpToDate bool
	// Bootstrapped is true when a legacy database was seeded in this run.
	Bootstrapped bool
	// Seeded lists the units recorded by the legacy bootstrap without running.
	Seeded []string
	// Applied lists the units applied in this run, in order.
	Applied []string
	// Outcomes has one entry per attempted unit, the failing one included.
	Outcomes []Outcome
}

// Run brings the database up to date.
//
// It bootstraps legacy databases, computes pending units, and applies them in
// name order, each in its own transaction together with its tracking record.
// It stops at the first failure and returns an *AggregateError naming the
// failing unit and the units applied before it. Any returned error means the
// schema is not fully migrated and the caller must not proceed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	logger := r.logger.With("run_id", uuid.NewString())

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer conn.Close()

	state, err := Detect(ctx, conn)
	if err != nil {
		return nil, err
	}
	if state.LockHeld {
		return nil, &BootstrapError{Op: "detect", Err: ErrBootstrapLocked}
	}

	result := &Result{}
	switch {
	case state.Legacy():
		seeded, err := r.bootstrap(ctx, conn)
		if err != nil {
			return nil, err
		}
		result.Bootstrapped = true
		result.Seeded = seeded
		logger.Info("legacy database marked as migrated to baseline",
			"baseline", seeded[len(seeded)-1],
			"seeded", len(seeded),
		)
	case state.HasTrackingTable:
		if r.integrityCheck {
			violations, err := ForeignKeyCheck(ctx, conn)
			if err != nil {
				return nil, err
			}
			if len(violations) > 0 {
				return nil, &IntegrityViolationError{Violations: violations}
			}
		}
	default:
		if err := ensureTrackingTable(ctx, conn); err != nil {
			return nil, err
		}
	}

	applied, err := appliedSet(ctx, conn)
	if err != nil {
		return nil, err
	}
	for name := range applied {
		if _, ok := r.registry.Lookup(name); !ok {
			logger.Warn("database records a migration unknown to this build", "migration", name)
		}
	}

	var pending []Unit
	for _, u := range r.registry.Units() {
		if !applied[u.Name] {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		result.UpToDate = true
		logger.Info("database schema is up to date", "applied", len(applied))
		return result, nil
	}

	logger.Info("bringing up migrations", "migration_count", len(pending))

	for _, u := range pending {
		started := time.Now()
		err := r.apply(ctx, conn, u, logger)
		elapsed := time.Since(started)
		result.Outcomes = append(result.Outcomes, Outcome{Name: u.Name, Err: err, Duration: elapsed})

		if err != nil {
			logger.Error("migration failed", "migration", u.Name, "error", err)
			return result, &AggregateError{
				Failed:    u.Name,
				Err:       err,
				Succeeded: slices.Clone(result.Applied),
			}
		}

		result.Applied = append(result.Applied, u.Name)
		result.AppliedCount++
		logger.Info("migration applied", "migration", u.Name, "duration", elapsed)
	}

	return result, nil
}

// bootstrap records every unit up to the baseline without running them. The
// tracking table, the lock table and the records are created in a single
// transaction, so an interruption leaves no trace.
func (r *Runner) bootstrap(ctx context.Context, conn *sql.Conn) ([]string, error) {
	units := r.registry.throughBaseline()
	if len(units) == 0 {
		return nil, &BootstrapError{Op: "seed", Err: ErrNoBaseline}
	}

	names := make([]string, len(units))
	err := inTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createLockTableSQL); err != nil {
			return fmt.Errorf("failed to create %s table: %w", LockTable, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+LockTable+` (id, locked_at) VALUES (1, ?)`, r.stamp()); err != nil {
			return fmt.Errorf("failed to take bootstrap lock: %w", err)
		}
		if err := ensureTrackingTable(ctx, tx); err != nil {
			return err
		}
		for i, u := range units {
			if err := recordApplied(ctx, tx, u.Name, r.stamp()); err != nil {
				return err
			}
			names[i] = u.Name
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE `+LockTable); err != nil {
			return fmt.Errorf("failed to release bootstrap lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &BootstrapError{Op: "seed", Err: err}
	}
	return names, nil
}

// apply runs one unit and records it in the same transaction.
func (r *Runner) apply(ctx context.Context, conn *sql.Conn, u Unit, logger *slog.Logger) error {
	unitLogger := logger.With("migration", u.Name)
	unitLogger.Debug("executing migration", "foreign_keys_off", u.DisableForeignKeys)

	err := r.inUnitTx(ctx, conn, u, unitLogger, func(tx *Tx) error {
		if err := u.Up(ctx, tx); err != nil {
			return &ExecutionError{Unit: u.Name, Err: err}
		}
		if err := r.checkIntegrity(ctx, tx, u); err != nil {
			return err
		}
		if err := recordApplied(ctx, tx, u.Name, r.stamp()); err != nil {
			return &ExecutionError{Unit: u.Name, Err: err}
		}
		return nil
	})
	return typed(u.Name, err)
}

// inUnitTx opens the unit's transaction, with foreign keys off when the unit
// asks for it.
func (r *Runner) inUnitTx(ctx context.Context, conn *sql.Conn, u Unit, logger *slog.Logger, fn func(*Tx) error) error {
	run := func() error {
		return inTx(ctx, conn, func(sqlTx *sql.Tx) error {
			return fn(&Tx{
				tx:             sqlTx,
				unit:           u.Name,
				logger:         logger,
				batchSize:      r.batchSize,
				foreignKeysOff: u.DisableForeignKeys,
			})
		})
	}
	if u.DisableForeignKeys {
		return withoutForeignKeys(ctx, conn, run)
	}
	return run()
}

// checkIntegrity runs the foreign key check for units that ran without
// enforcement.
func (r *Runner) checkIntegrity(ctx context.Context, tx *Tx, u Unit) error {
	if !u.DisableForeignKeys {
		return nil
	}
	violations, err := ForeignKeyCheck(ctx, tx)
	if err != nil {
		return &ExecutionError{Unit: u.Name, Err: err}
	}
	if len(violations) > 0 {
		return &IntegrityViolationError{Unit: u.Name, Violations: violations}
	}
	return nil
}

// stamp returns the current canonical timestamp, never earlier than the
// previous one handed out.
func (r *Runner) stamp() string {
	s := timefmt.Format(r.now())
	if s < r.lastStamp {
		s = r.lastStamp
	}
	r.lastStamp = s
	return s
}

// typed makes sure every unit failure is an *ExecutionError or an
// *IntegrityViolationError.
func typed(unit string, err error) error {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	var integrityErr *IntegrityViolationError
	if errors.As(err, &execErr) || errors.As(err, &integrityErr) {
		return err
	}
	return &ExecutionError{Unit: unit, Err: err}
}
