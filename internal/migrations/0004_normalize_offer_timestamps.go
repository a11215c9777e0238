package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

// normalizeOfferTimestamps rewrites scraper-provided dates and SQLite
// CURRENT_TIMESTAMP values into the canonical layout.
func normalizeOfferTimestamps() migration.Unit {
	return migration.Unit{
		Name: "0004_normalize_offer_timestamps",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			for _, col := range []string{"posted_at", "scraped_at"} {
				stats, err := tx.Backfill(ctx, migration.Backfill{
					Table:     "offers",
					Column:    col,
					Key:       "id",
					Transform: timestamp,
				})
				if err != nil {
					return err
				}
				tx.Logger().Info("normalized timestamps", "table", "offers", "column", col, "rewritten", stats.Rewritten)
			}
			return nil
		},
	}
}
