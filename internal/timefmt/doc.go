// Package timefmt defines the canonical timestamp encoding stored in the
// offerwatch database and recognizes the legacy encodings older releases and
// scrapers wrote.
//
// Canonical values look like "2024-03-01T18:04:05.123Z": UTC with millisecond
// precision, identical to what SQLite produces with
// strftime('%Y-%m-%dT%H:%M:%fZ', 'now'). Keeping one fixed-width encoding
// makes lexical ordering of the TEXT columns equal to chronological ordering.
package timefmt
