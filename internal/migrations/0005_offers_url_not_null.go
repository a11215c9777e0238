package migrations

import (
	"context"
	"fmt"

	"github.com/nao1215/offerwatch/internal/migration"
)

// offersURLNotNull makes offers.url mandatory. Offers without a URL cannot be
// deduplicated or linked in a notification, so they are discarded together
// with the notifications pointing at them.
func offersURLNotNull() migration.Unit {
	return migration.Unit{
		Name:               "0005_offers_url_not_null",
		DisableForeignKeys: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			// Databases that recorded 0002 before it created missing
			// baseline tables still lack chats.
			if err := ensureBaselineTables(ctx, tx); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `DELETE FROM notifications
WHERE (offer_id IS NOT NULL AND offer_id NOT IN (SELECT id FROM offers WHERE url IS NOT NULL))
   OR (chat_id IS NOT NULL AND chat_id NOT IN (SELECT id FROM chats))`)
			if err != nil {
				return fmt.Errorf("failed to delete notifications of offers without url: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				tx.Logger().Info("discarded notifications of offers without url", "rows", n)
			}

			return tx.Recreate(ctx, migration.TableRecreation{
				Table: "offers",
				Create: `CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	price TEXT,
	currency TEXT,
	location TEXT,
	description TEXT,
	posted_at TEXT,
	scraped_at TEXT NOT NULL DEFAULT ` + canonicalNow + `,
	sent INTEGER NOT NULL DEFAULT 0
)`,
				Columns: []migration.ColumnCopy{
					migration.Col("id"),
					migration.Col("url"),
					migration.Col("source"),
					migration.Col("title"),
					migration.Col("price"),
					migration.Col("currency"),
					migration.Col("location"),
					migration.Col("description"),
					migration.Col("posted_at"),
					migration.Col("scraped_at"),
					migration.Col("sent"),
				},
				Filter: "url IS NOT NULL",
			})
		},
	}
}
