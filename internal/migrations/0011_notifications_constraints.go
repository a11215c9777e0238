package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

// notificationsConstraints makes both references mandatory and cascading and
// allows a single notification per offer and subscription. Rows that cannot
// satisfy the new shape are discarded: missing or dangling references, and
// every duplicate but the oldest.
func notificationsConstraints() migration.Unit {
	return migration.Unit{
		Name:               "0011_notifications_constraints",
		DisableForeignKeys: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Recreate(ctx, migration.TableRecreation{
				Table: "notifications",
				Create: `CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	offer_id INTEGER NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
	subscription_id INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
	sent_at TEXT NOT NULL DEFAULT ` + canonicalNow + `,
	UNIQUE (offer_id, subscription_id)
)`,
				Columns: []migration.ColumnCopy{
					migration.Col("id"),
					migration.Col("offer_id"),
					migration.Col("subscription_id"),
					migration.ColExpr("sent_at", "COALESCE(sent_at, "+canonicalNow+")"),
				},
				Filter: `offer_id IN (SELECT id FROM offers)
	AND subscription_id IN (SELECT id FROM subscriptions)
	AND id IN (SELECT MIN(id) FROM notifications GROUP BY offer_id, subscription_id)`,
			})
		},
	}
}
