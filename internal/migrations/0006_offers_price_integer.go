package migrations

import (
	"context"
	"fmt"

	"github.com/nao1215/offerwatch/internal/migration"
)

const priceCurrency = `COALESCE(NULLIF(currency, ''), CASE
	WHEN price LIKE '%€%' OR upper(price) LIKE '%EUR%' THEN 'EUR'
	WHEN price LIKE '%$%' OR upper(price) LIKE '%USD%' THEN 'USD'
	ELSE 'PLN'
END)`

// offersPriceInteger turns the scraped price text into an integer amount and
// a currency code. The currency is taken from the text before the amount is
// rewritten. Text without any digit ("Zapytaj o cenę") means the seller gave
// no price and becomes NULL; any other text the price transform cannot read
// stops the migration.
func offersPriceInteger() migration.Unit {
	return migration.Unit{
		Name:               "0006_offers_price_integer",
		DisableForeignKeys: true,
		Up: func(ctx context.Context, tx *migration.Tx) error {
			if _, err := tx.ExecContext(ctx, `UPDATE offers SET currency = `+priceCurrency); err != nil {
				return fmt.Errorf("failed to derive offer currencies: %w", err)
			}

			res, err := tx.ExecContext(ctx, `UPDATE offers SET price = NULL
WHERE price IS NOT NULL AND price NOT GLOB '*[0-9]*'`)
			if err != nil {
				return fmt.Errorf("failed to clear prices without an amount: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				tx.Logger().Info("cleared prices without an amount", "rows", n)
			}

			stats, err := tx.Backfill(ctx, migration.Backfill{
				Table:     "offers",
				Column:    "price",
				Key:       "id",
				Transform: priceAmount,
			})
			if err != nil {
				return err
			}
			tx.Logger().Info("normalized prices", "table", "offers", "rewritten", stats.Rewritten)

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
	sent INTEGER NOT NULL DEFAULT 0
)`,
				Columns: []migration.ColumnCopy{
					migration.Col("id"),
					migration.Col("url"),
					migration.Col("source"),
					migration.Col("title"),
					migration.ColExpr("price", "CAST(price AS INTEGER)"),
					migration.Col("currency"),
					migration.Col("location"),
					migration.Col("description"),
					migration.Col("posted_at"),
					migration.Col("scraped_at"),
					migration.Col("sent"),
				},
			})
		},
	}
}
