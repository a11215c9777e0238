package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/offerwatch/internal/migration"
)

// State describes where a database is in the migration history.
type State string

const (
	// StateEmpty is a database without any table.
	StateEmpty State = "empty"
	// StateLegacy is a database created before migrations were tracked.
	StateLegacy State = "legacy"
	// StatePending is a tracked database with units left to apply.
	StatePending State = "pending"
	// StateUpToDate is a tracked database with every unit applied.
	StateUpToDate State = "up-to-date"
)

// UnitReport is the status of one registered unit.
type UnitReport struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
	AppliedAt   string `json:"applied_at,omitempty"`
	Baseline    bool   `json:"baseline,omitempty"`
	Reversible  bool   `json:"reversible"`
}

// StatusReport is the output-ready form of a migration.Status.
type StatusReport struct {
	Database string       `json:"database"`
	State    State        `json:"state"`
	Current  string       `json:"current,omitempty"`
	Applied  int          `json:"applied"`
	Pending  int          `json:"pending"`
	Units    []UnitReport `json:"units"`

	// Unknown lists applied units this build does not know, usually written
	// by a newer release.
	Unknown []string `json:"unknown,omitempty"`
}

// NewStatusReport builds a StatusReport for the database at dbPath.
func NewStatusReport(dbPath string, status *migration.Status) *StatusReport {
	r := &StatusReport{
		Database: dbPath,
		Current:  status.Current(),
		Applied:  status.AppliedCount(),
		Pending:  len(status.Pending()),
		Units:    make([]UnitReport, 0, len(status.Units)),
	}

	switch {
	case status.Legacy:
		r.State = StateLegacy
	case !status.Tracked:
		r.State = StateEmpty
	case status.UpToDate():
		r.State = StateUpToDate
	default:
		r.State = StatePending
	}

	for _, u := range status.Units {
		r.Units = append(r.Units, UnitReport{
			Name:        u.Name,
			Description: Describe(u.Name),
			Applied:     u.Applied,
			AppliedAt:   u.AppliedAt,
			Baseline:    u.Baseline,
			Reversible:  u.Reversible,
		})
	}
	for _, rec := range status.Unknown {
		r.Unknown = append(r.Unknown, rec.Name)
	}

	return r
}

// Describe turns a unit name into a human title:
// "0005_offers_url_not_null" becomes "Offers Url Not Null".
func Describe(name string) string {
	_, rest, found := strings.Cut(name, "_")
	if !found {
		rest = name
	}
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(rest, "_", " "))
}
