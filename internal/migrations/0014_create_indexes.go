package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

func createIndexes() migration.Unit {
	return migration.Unit{
		Name: "0014_create_indexes",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx,
				`CREATE INDEX IF NOT EXISTS idx_offers_source ON offers(source)`,
				`CREATE INDEX IF NOT EXISTS idx_offers_posted_at ON offers(posted_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_subscription_id ON notifications(subscription_id)`,
				`CREATE INDEX IF NOT EXISTS idx_offer_matches_subscription_id ON offer_matches(subscription_id)`,
			)
		},
		Down: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx,
				`DROP INDEX IF EXISTS idx_offers_source`,
				`DROP INDEX IF EXISTS idx_offers_posted_at`,
				`DROP INDEX IF EXISTS idx_notifications_subscription_id`,
				`DROP INDEX IF EXISTS idx_offer_matches_subscription_id`,
			)
		},
	}
}
