// Package database provides SQLite-based storage for offerwatch.
//
// Open is the only way the rest of the program obtains the store: it opens
// the database file, brings the schema up to date with the registry in
// internal/migrations, and only then returns an OfferDB. A database whose
// migrations failed is closed and never handed out.
//
// The store holds:
//   - Offers scraped from classified-ad portals
//   - Subscriptions of Telegram chats and Discord webhooks
//   - Matches between offers and subscriptions
//   - Notifications already sent
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver.
package database
