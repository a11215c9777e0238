// Package migrations holds the ordered schema history of the offerwatch
// database.
//
// Units are named NNNN_description and applied in name order by the runner in
// internal/migration. 0001_initial_schema is the baseline: it reproduces the
// schema of releases that predate migration tracking, so databases created by
// those releases are marked as migrated to it instead of running it.
//
// Applied units are history. Never edit or rename one; add a new unit instead.
package migrations
