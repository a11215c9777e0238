package migration

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
)

// DefaultBatchSize is the number of rows a backfill reads per batch when the
// runner was not configured otherwise.
const DefaultBatchSize = 500

// Class is the outcome of classifying one stored value.
type Class int

const (
	// ClassInvalid values abort the backfill.
	ClassInvalid Class = iota
	// ClassLegacy values are rewritten.
	ClassLegacy
	// ClassCanonical values are left untouched.
	ClassCanonical
)

// String returns a lowercase name of the class.
func (c Class) String() string {
	switch c {
	case ClassLegacy:
		return "legacy"
	case ClassCanonical:
		return "canonical"
	default:
		return "invalid"
	}
}

// Transform classifies a value and, for ClassLegacy, returns its rewrite.
// Applying a transform to its own output must yield ClassCanonical.
type Transform func(value string) (Class, string)

// Row is one (key, value) pair read by Batches.
type Row struct {
	Key   int64
	Value sql.NullString
}

// Backfill describes a column rewrite.
type Backfill struct {
	Table  string
	Column string
	// Key is an integer column with unique, ascending values. Empty means rowid.
	Key       string
	Transform Transform
	// After resumes the scan after this key.
	After int64
}

// BackfillStats counts what a backfill did.
type BackfillStats struct {
	Scanned   int
	Rewritten int
	Unchanged int
	Null      int
}

// Batches lazily reads (key, column) pairs of table ordered by key, size rows
// at a time. Each batch is fully read before it is yielded, so the caller may
// write to the table between batches. Pagination is keyset based: it restarts
// from any key and never materializes the whole table.
func Batches(ctx context.Context, q Querier, table, key, column string, after int64, size int) iter.Seq2[[]Row, error] {
	if key == "" {
		key = "rowid"
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s > ? ORDER BY %s LIMIT ?",
		quoteIdent(key), quoteIdent(column), quoteIdent(table), quoteIdent(key), quoteIdent(key))

	return func(yield func([]Row, error) bool) {
		last := after
		for {
			batch, err := readBatch(ctx, q, query, last, size)
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s.%s after key %d: %w", table, column, last, err))
				return
			}
			if len(batch) == 0 {
				return
			}
			if !yield(batch, nil) {
				return
			}
			if len(batch) < size {
				return
			}
			last = batch[len(batch)-1].Key
		}
	}
}

func readBatch(ctx context.Context, q Querier, query string, after int64, size int) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, after, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batch := make([]Row, 0, size)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, err
		}
		batch = append(batch, r)
	}
	return batch, rows.Err()
}

// Backfill rewrites legacy values of one column in bounded batches. NULL
// values are skipped. The first invalid value stops the backfill with an
// *InvalidValueError.
func (t *Tx) Backfill(ctx context.Context, b Backfill) (BackfillStats, error) {
	var stats BackfillStats
	if b.Transform == nil {
		return stats, fmt.Errorf("backfill of %s.%s has no transform", b.Table, b.Column)
	}
	key := b.Key
	if key == "" {
		key = "rowid"
	}
	update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quoteIdent(b.Table), quoteIdent(b.Column), quoteIdent(key))

	for batch, err := range Batches(ctx, t, b.Table, key, b.Column, b.After, t.batchSize) {
		if err != nil {
			return stats, err
		}
		for _, row := range batch {
			stats.Scanned++
			if !row.Value.Valid {
				stats.Null++
				continue
			}

			class, rewritten := b.Transform(row.Value.String)
			switch class {
			case ClassCanonical:
				stats.Unchanged++
			case ClassLegacy:
				if _, err := t.tx.ExecContext(ctx, update, rewritten, row.Key); err != nil {
					return stats, fmt.Errorf("failed to rewrite %s.%s (key %d): %w", b.Table, b.Column, row.Key, err)
				}
				stats.Rewritten++
			default:
				return stats, &InvalidValueError{
					Table:  b.Table,
					Column: b.Column,
					Key:    row.Key,
					Value:  row.Value.String,
				}
			}
		}
	}

	t.logger.Debug("backfill finished",
		"table", b.Table,
		"column", b.Column,
		"scanned", stats.Scanned,
		"rewritten", stats.Rewritten,
		"unchanged", stats.Unchanged,
		"null", stats.Null,
	)
	return stats, nil
}
