package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

func createNotifications() migration.Unit {
	return migration.Unit{
		Name: "0002_create_notifications",
		Up: func(ctx context.Context, tx *migration.Tx) error {
			if err := ensureBaselineTables(ctx, tx); err != nil {
				return err
			}
			return tx.Exec(ctx, `CREATE TABLE notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	offer_id INTEGER REFERENCES offers(id),
	chat_id INTEGER REFERENCES chats(id),
	sent_at TEXT DEFAULT CURRENT_TIMESTAMP
)`)
		},
		Down: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx, `DROP TABLE notifications`)
		},
	}
}
