package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

const (
	isDiscordChat = `COALESCE(discord_webhook, '') <> ''`
	hasChatTarget = isDiscordChat + ` OR COALESCE(telegram_chat_id, '') <> ''`
)

// chatsToSubscriptions replaces the per-platform columns of chats with a
// platform/target pair in a new subscriptions table and repoints
// notifications at it. Chats with neither a Telegram chat nor a Discord
// webhook could never be notified and are dropped along with their
// notifications. A chat with both is kept as a Discord subscription.
func chatsToSubscriptions() migration.Unit {
	return migration.Unit{
		Name:               "0007_chats_to_subscriptions",
		DisableForeignKeys: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Recreate(ctx,
				migration.TableRecreation{
					Table:  "chats",
					Target: "subscriptions",
					Create: `CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL CHECK (platform IN ('telegram', 'discord')),
	target TEXT NOT NULL,
	query TEXT NOT NULL,
	max_price INTEGER,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT ` + canonicalNow + `
)`,
					Columns: []migration.ColumnCopy{
						migration.Col("id"),
						migration.ColExpr("platform", `CASE WHEN `+isDiscordChat+` THEN 'discord' ELSE 'telegram' END`),
						migration.ColExpr("target", `CASE WHEN `+isDiscordChat+` THEN discord_webhook ELSE telegram_chat_id END`),
						migration.Col("query"),
						migration.Col("max_price"),
						migration.Col("created_at"),
					},
					Filter: hasChatTarget,
				},
				migration.TableRecreation{
					Table: "notifications",
					Create: `CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	offer_id INTEGER REFERENCES offers(id),
	subscription_id INTEGER REFERENCES subscriptions(id),
	sent_at TEXT DEFAULT CURRENT_TIMESTAMP
)`,
					Columns: []migration.ColumnCopy{
						migration.Col("id"),
						migration.Col("offer_id"),
						migration.ColExpr("subscription_id", "chat_id"),
						migration.Col("sent_at"),
					},
					Filter: `chat_id IS NULL OR chat_id IN (SELECT id FROM chats WHERE ` + hasChatTarget + `)`,
				},
			)
		},
	}
}
