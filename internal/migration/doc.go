// Package migration evolves the offerwatch SQLite schema across releases.
//
// A Registry holds every Unit, ordered by name. A Runner compares the
// registry with the tracking table (migrations), then applies each pending unit
// in its own transaction and records it in that same transaction, so a unit is
// either fully applied and recorded or not applied at all. The first failure
// halts the run: later units may depend on columns an earlier one adds.
//
// # Legacy databases
//
// Releases before the migration engine created their tables directly and kept
// no history. When the runner finds domain tables but no tracking table, it
// records every unit up to and including the one marked Baseline without
// running it, because the legacy schema already matches that state.
//
// # Table recreation
//
// SQLite cannot change a column's type, nullability or constraints in place.
// Units that need such changes set DisableForeignKeys and call Tx.Recreate,
// which builds shadow tables with the target shape, copies rows through an
// explicit column list, then swaps the shadows in. The runner turns foreign key
// enforcement off on its pinned connection before BEGIN (the pragma is a no-op
// inside a transaction), runs PRAGMA foreign_key_check before COMMIT, and turns
// enforcement back on whatever happens.
//
// # Backfills
//
// Tx.Backfill rewrites a column in bounded batches. Each value is classified as
// legacy, canonical or invalid; only legacy values are rewritten and any invalid
// value aborts the unit.
package migration
