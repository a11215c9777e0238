package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

// addOfferEnrichment adds the columns filled by the enrichment client.
func addOfferEnrichment() migration.Unit {
	return migration.Unit{
		Name: "0010_add_offer_enrichment",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return addColumns(ctx, tx, "offers",
				column{name: "area_m2", definition: "REAL"},
				column{name: "rooms", definition: "INTEGER"},
				column{name: "enriched_at", definition: "TEXT"},
			)
		},
	}
}
