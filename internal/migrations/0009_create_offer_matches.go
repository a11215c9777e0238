package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

func createOfferMatches() migration.Unit {
	return migration.Unit{
		Name: "0009_create_offer_matches",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx, `CREATE TABLE offer_matches (
	offer_id INTEGER NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
	subscription_id INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
	score REAL NOT NULL,
	matched_at TEXT NOT NULL DEFAULT `+canonicalNow+`,
	PRIMARY KEY (offer_id, subscription_id)
)`)
		},
		Down: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx, `DROP TABLE offer_matches`)
		},
	}
}
