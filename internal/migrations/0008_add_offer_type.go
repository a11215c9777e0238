package migrations

import (
	"context"

	"github.com/nao1215/offerwatch/internal/migration"
)

// offerTypeBySource classifies existing offers by the portal they were
// scraped from.
const offerTypeBySource = `CASE
	WHEN lower(source) IN ('olx', 'otodom', 'morizon', 'gratka', 'domiporta', 'nieruchomosci-online') THEN 'real_estate'
	WHEN lower(source) IN ('otomoto', 'autoplac') THEN 'vehicle'
	ELSE 'other'
END`

// addOfferType adds a mandatory offer_type. A CHECK constraint without a
// default cannot be added with ALTER TABLE, so the table is rebuilt.
func addOfferType() migration.Unit {
	return migration.Unit{
		Name:               "0008_add_offer_type",
		DisableForeignKeys: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			return tx.Recreate(ctx, migration.TableRecreation{
				Table: "offers",
				Create: `CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	price INTEGER,
	currency TEXT NOT NULL DEFAULT 'PLN',
	location TEXT,
	description TEXT,
	posted_at TEXT,
	scraped_at TEXT NOT NULL DEFAULT ` + canonicalNow + `,
	sent INTEGER NOT NULL DEFAULT 0,
	offer_type TEXT NOT NULL CHECK (offer_type IN ('real_estate', 'vehicle', 'other'))
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
					migration.ColExpr("offer_type", offerTypeBySource),
				},
			})
		},
	}
}
