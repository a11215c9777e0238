package migrations

import (
	"context"
	"fmt"

	"github.com/nao1215/offerwatch/internal/migration"
	"github.com/nao1215/offerwatch/internal/timefmt"
)

// Registry is the complete, ordered schema history.
var Registry = migration.MustRegistry(
	initialSchema(),
	createNotifications(),
	addOfferDescription(),
	normalizeOfferTimestamps(),
	offersURLNotNull(),
	offersPriceInteger(),
	chatsToSubscriptions(),
	addOfferType(),
	createOfferMatches(),
	addOfferEnrichment(),
	notificationsConstraints(),
	normalizeNotificationTimestamps(),
	dropOfferSentFlag(),
	createIndexes(),
)

// Latest returns the name of the newest unit.
func Latest() string {
	units := Registry.Units()
	return units[len(units)-1].Name
}

// canonicalNow is the DEFAULT expression for timestamp columns.
const canonicalNow = "(" + timefmt.SQLiteNow + ")"

// timestamp is the backfill transform for timestamp columns.
func timestamp(value string) (migration.Class, string) {
	switch kind, canonical := timefmt.Classify(value); kind {
	case timefmt.KindCanonical:
		return migration.ClassCanonical, canonical
	case timefmt.KindLegacy:
		return migration.ClassLegacy, canonical
	default:
		return migration.ClassInvalid, ""
	}
}

// column is a column definition for addColumns.
type column struct {
	name       string
	definition string
}

// addColumns adds the columns missing from table. Some installations added
// columns by hand before they were part of the schema history.
func addColumns(ctx context.Context, tx *migration.Tx, table string, columns ...column) error {
	for _, c := range columns {
		exists, err := tx.ColumnExists(ctx, table, c.name)
		if err != nil {
			return err
		}
		if exists {
			tx.Logger().Debug("column already exists", "table", table, "column", c.name)
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.definition)
		if err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
