package migration

import (
	"context"
	"fmt"
)

// UnitStatus describes one registered unit.
type UnitStatus struct {
	Name       string
	Applied    bool
	AppliedAt  string
	Baseline   bool
	Reversible bool
}

// Status is a read-only view of the registry against the tracking table.
type Status struct {
	// Tracked is false when the database has no tracking table yet.
	Tracked bool
	// Legacy is true when the database has domain tables but no tracking table.
	Legacy bool
	// Units lists every registered unit in order.
	Units []UnitStatus
	// Unknown lists tracking records without a registered unit.
	Unknown []Record
}

// Pending returns the units that are not applied.
func (s *Status) Pending() []UnitStatus {
	var pending []UnitStatus
	for _, u := range s.Units {
		if !u.Applied {
			pending = append(pending, u)
		}
	}
	return pending
}

// AppliedCount returns the number of applied registered units.
func (s *Status) AppliedCount() int {
	n := 0
	for _, u := range s.Units {
		if u.Applied {
			n++
		}
	}
	return n
}

// Current returns the name of the last applied unit, or "" if none is.
func (s *Status) Current() string {
	current := ""
	for _, u := range s.Units {
		if u.Applied {
			current = u.Name
		}
	}
	return current
}

// UpToDate reports whether every registered unit is applied.
func (s *Status) UpToDate() bool {
	return s.Tracked && len(s.Pending()) == 0
}

// Status reports which units are applied without changing the database.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	state, err := Detect(ctx, r.db)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Tracked: state.HasTrackingTable,
		Legacy:  state.Legacy(),
	}

	appliedAt := make(map[string]string)
	if state.HasTrackingTable {
		records, err := appliedRecords(ctx, r.db)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			appliedAt[rec.Name] = rec.AppliedAt
			if _, ok := r.registry.Lookup(rec.Name); !ok {
				status.Unknown = append(status.Unknown, rec)
			}
		}
	}

	for _, u := range r.registry.Units() {
		at, ok := appliedAt[u.Name]
		status.Units = append(status.Units, UnitStatus{
			Name:       u.Name,
			Applied:    ok,
			AppliedAt:  at,
			Baseline:   u.Baseline,
			Reversible: u.Down != nil,
		})
	}

	return status, nil
}

// RollbackLast reverts the last applied unit with its Down procedure and
// deletes its tracking record, both in one transaction. It is a manual
// operation; Run never calls it.
func (r *Runner) RollbackLast(ctx context.Context) (string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer conn.Close()

	tracked, err := HasTrackingTable(ctx, conn)
	if err != nil {
		return "", err
	}
	if !tracked {
		return "", ErrNothingApplied
	}

	records, err := appliedRecords(ctx, conn)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNothingApplied
	}

	last := records[len(records)-1].Name
	u, ok := r.registry.Lookup(last)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownUnit, last)
	}
	if u.Down == nil {
		return "", fmt.Errorf("%w: %s", ErrNoDown, last)
	}

	logger := r.logger.With("migration", u.Name)
	err = r.inUnitTx(ctx, conn, u, logger, func(tx *Tx) error {
		if err := u.Down(ctx, tx); err != nil {
			return &ExecutionError{Unit: u.Name, Err: err}
		}
		if err := r.checkIntegrity(ctx, tx, u); err != nil {
			return err
		}
		return deleteRecord(ctx, tx, u.Name)
	})
	if err != nil {
		return "", typed(u.Name, err)
	}

	logger.Info("migration rolled back")
	return u.Name, nil
}
