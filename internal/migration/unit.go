package migration

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Func is a migration procedure. It runs inside the transaction the runner
// opened for its unit; returning an error rolls everything back.
type Func func(ctx context.Context, tx *Tx) error

// Unit is one named schema or data change.
type Unit struct {
	// Name identifies the unit and defines its order. Names sort lexically,
	// so use a zero-padded sequence prefix such as "0007_add_offer_type".
	Name string

	// Up applies the change.
	Up Func

	// Down reverts the change. It is only set for simple, non-destructive
	// reversals and is never invoked automatically.
	Down Func

	// Baseline marks the unit whose resulting schema equals the schema of
	// legacy, untracked databases. Bootstrapping a legacy database records this
	// unit and every unit before it without running them.
	Baseline bool

	// DisableForeignKeys runs the unit with foreign key enforcement turned off
	// and checks referential integrity before commit. Units calling
	// Tx.Recreate must set it.
	DisableForeignKeys bool
}

// Registry is the ordered catalog of every migration unit.
type Registry struct {
	units    []Unit
	index    map[string]int
	baseline int
}

// NewRegistry validates units and returns a registry sorted ascending by name.
// The order of the arguments does not matter.
func NewRegistry(units ...Unit) (*Registry, error) {
	sorted := slices.Clone(units)
	slices.SortFunc(sorted, func(a, b Unit) int {
		return strings.Compare(a.Name, b.Name)
	})

	r := &Registry{
		units:    sorted,
		index:    make(map[string]int, len(sorted)),
		baseline: -1,
	}
	for i, u := range sorted {
		if strings.TrimSpace(u.Name) == "" {
			return nil, fmt.Errorf("%w: unit at position %d has no name", ErrInvalidUnit, i)
		}
		if u.Up == nil {
			return nil, fmt.Errorf("%w: %s has no up procedure", ErrInvalidUnit, u.Name)
		}
		if _, dup := r.index[u.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUnit, u.Name)
		}
		r.index[u.Name] = i

		if u.Baseline {
			if r.baseline >= 0 {
				return nil, fmt.Errorf("%w: %s and %s", ErrMultipleBaselines, sorted[r.baseline].Name, u.Name)
			}
			r.baseline = i
		}
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on invalid input. A broken
// registry is a programming error, so it is meant for package-level variables.
func MustRegistry(units ...Unit) *Registry {
	r, err := NewRegistry(units...)
	if err != nil {
		panic(err)
	}
	return r
}

// Units returns every unit sorted ascending by name.
func (r *Registry) Units() []Unit {
	return slices.Clone(r.units)
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	return len(r.units)
}

// Lookup returns the unit with the given name.
func (r *Registry) Lookup(name string) (Unit, bool) {
	i, ok := r.index[name]
	if !ok {
		return Unit{}, false
	}
	return r.units[i], true
}

// Baseline returns the unit marked Baseline, if any.
func (r *Registry) Baseline() (Unit, bool) {
	if r.baseline < 0 {
		return Unit{}, false
	}
	return r.units[r.baseline], true
}

// throughBaseline returns the baseline unit and every unit sorted before it.
func (r *Registry) throughBaseline() []Unit {
	if r.baseline < 0 {
		return nil
	}
	return slices.Clone(r.units[:r.baseline+1])
}
