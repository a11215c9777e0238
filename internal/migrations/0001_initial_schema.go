package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

const (
	baselineOffers = `offers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	price TEXT,
	location TEXT,
	posted_at TEXT,
	scraped_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	sent INTEGER NOT NULL DEFAULT 0
)`
	baselineChats = `chats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_chat_id TEXT,
	discord_webhook TEXT,
	query TEXT NOT NULL,
	max_price INTEGER,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
)

// initialSchema is the schema written by releases without migration tracking.
func initialSchema() migration.Unit {
	return migration.Unit{
		Name:     "0001_initial_schema",
		Baseline: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Exec(ctx,
				"CREATE TABLE "+baselineOffers,
				"CREATE TABLE "+baselineChats,
			)
		},
	}
}

// ensureBaselineTables creates the baseline tables a bootstrapped database
// lacks. Untracked releases created chats only when the first chat
// subscribed, so an adopted database may hold offers alone.
func ensureBaselineTables(ctx context.Context, tx *migration.Tx) error {
	return tx.Exec(ctx,
		"CREATE TABLE IF NOT EXISTS "+baselineOffers,
		"CREATE TABLE IF NOT EXISTS "+baselineChats,
	)
}
