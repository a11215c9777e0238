package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

func addOfferDescription() migration.Unit {
	return migration.Unit{
		Name: "0003_add_offer_description",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return addColumns(ctx, tx, "offers",
				column{name: "description", definition: "TEXT"},
				column{name: "currency", definition: "TEXT"},
			)
		},
	}
}
