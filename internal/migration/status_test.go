package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func reversibleUnit(name, up, down string) Unit {
	u := execUnit(name, up)
	if down != "" {
		u.Down = func(ctx context.Context, tx *Tx) error {
			return tx.Exec(ctx, down)
		}
	}
	return u
}

func TestRunnerStatus(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	registry := MustRegistry(
		reversibleUnit("0001_a", `CREATE TABLE a (id INTEGER PRIMARY KEY)`, `DROP TABLE a`),
		reversibleUnit("0002_b", `CREATE TABLE b (id INTEGER PRIMARY KEY)`, ""),
	)
	runner := newTestRunner(db, registry)
	ctx := context.Background()

	status, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Tracked || status.Legacy || status.UpToDate() {
		t.Errorf("unexpected status of an empty database: %+v", status)
	}
	if len(status.Pending()) != 2 || status.Current() != "" {
		t.Errorf("expected two pending units and no current one, got %+v", status)
	}
	if tableExists(t, db, TrackingTable) {
		t.Error("Status() created the tracking table")
	}

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	mustExec(t, db, `INSERT INTO migrations (name, applied_at) VALUES ('0000_removed', '2020-01-01T00:00:00.000Z')`)

	status, err = runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.UpToDate() || status.AppliedCount() != 2 || status.Current() != "0002_b" {
		t.Errorf("unexpected status after Run: %+v", status)
	}
	want := []UnitStatus{
		{Name: "0001_a", Applied: true, AppliedAt: status.Units[0].AppliedAt, Reversible: true},
		{Name: "0002_b", Applied: true, AppliedAt: status.Units[1].AppliedAt},
	}
	if diff := cmp.Diff(want, status.Units); diff != "" {
		t.Errorf("Units mismatch (-want +got):\n%s", diff)
	}
	if len(status.Unknown) != 1 || status.Unknown[0].Name != "0000_removed" {
		t.Errorf("Unknown = %+v", status.Unknown)
	}
}

func TestRunnerRollbackLast(t *testing.T) {
	t.Parallel()

	t.Run("reverts the last unit and lets Run reapply it", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		registry := MustRegistry(
			reversibleUnit("0001_a", `CREATE TABLE a (id INTEGER PRIMARY KEY)`, `DROP TABLE a`),
			reversibleUnit("0002_b", `CREATE TABLE b (id INTEGER PRIMARY KEY)`, `DROP TABLE b`),
		)
		runner := newTestRunner(db, registry)
		ctx := context.Background()

		if _, err := runner.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		name, err := runner.RollbackLast(ctx)
		if err != nil {
			t.Fatalf("RollbackLast() error = %v", err)
		}
		if name != "0002_b" {
			t.Errorf("RollbackLast() = %q, want 0002_b", name)
		}
		if tableExists(t, db, "b") {
			t.Error("table b still exists")
		}
		if diff := cmp.Diff([]string{"0001_a"}, recordNames(t, db)); diff != "" {
			t.Errorf("tracking records mismatch (-want +got):\n%s", diff)
		}

		result, err := runner.Run(ctx)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if diff := cmp.Diff([]string{"0002_b"}, result.Applied); diff != "" {
			t.Errorf("Applied mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()

		empty := openTestDB(t)
		irreversible := MustRegistry(reversibleUnit("0001_a", `CREATE TABLE a (id INTEGER PRIMARY KEY)`, ""))
		if _, err := newTestRunner(empty, irreversible).RollbackLast(ctx); !errors.Is(err, ErrNothingApplied) {
			t.Errorf("expected ErrNothingApplied, got %v", err)
		}

		db := openTestDB(t)
		runner := newTestRunner(db, irreversible)
		if _, err := runner.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if _, err := runner.RollbackLast(ctx); !errors.Is(err, ErrNoDown) {
			t.Errorf("expected ErrNoDown, got %v", err)
		}

		mustExec(t, db, `INSERT INTO migrations (name, applied_at) VALUES ('9999_future', '2030-01-01T00:00:00.000Z')`)
		if _, err := runner.RollbackLast(ctx); !errors.Is(err, ErrUnknownUnit) {
			t.Errorf("expected ErrUnknownUnit, got %v", err)
		}
	})
}
