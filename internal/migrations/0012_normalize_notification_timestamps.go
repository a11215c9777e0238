package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

func normalizeNotificationTimestamps() migration.Unit {
	return migration.Unit{
		Name: "0012_normalize_notification_timestamps",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			for _, b := range []migration.Backfill{
				{Table: "notifications", Column: "sent_at", Key: "id", Transform: timestamp},
				{Table: "subscriptions", Column: "created_at", Key: "id", Transform: timestamp},
			} {
				stats, err := tx.Backfill(ctx, b)
				if err != nil {
					return err
				}
				tx.Logger().Info("normalized timestamps", "table", b.Table, "column", b.Column, "rewritten", stats.Rewritten)
			}
			return nil
		},
	}
}
