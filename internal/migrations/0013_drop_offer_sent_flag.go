package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

// dropOfferSentFlag removes offers.sent, superseded by per-subscription
// notifications.
func dropOfferSentFlag() migration.Unit {
	return migration.Unit{
		Name: "0013_drop_offer_sent_flag",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			exists, err := tx.ColumnExists(ctx, "offers", "sent")
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			return tx.Exec(ctx, `ALTER TABLE offers DROP COLUMN sent`)
		},
	}
}
