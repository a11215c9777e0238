package timefmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical timestamp layout.
const Layout = "2006-01-02T15:04:05.000Z"

// SQLiteNow is an SQL expression producing the current time in canonical form.
// It is meant for column DEFAULT clauses.
const SQLiteNow = "strftime('%Y-%m-%dT%H:%M:%fZ', 'now')"

// ErrInvalid is returned when a value is neither canonical nor a known legacy
// encoding.
var ErrInvalid = errors.New("unrecognized timestamp")

// Kind classifies a stored timestamp value.
type Kind int

const (
	// KindInvalid marks values that cannot be interpreted as a timestamp.
	KindInvalid Kind = iota
	// KindLegacy marks values in one of the historical encodings.
	KindLegacy
	// KindCanonical marks values already stored in Layout.
	KindCanonical
)

// String returns a lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindCanonical:
		return "canonical"
	default:
		return "invalid"
	}
}

// legacyLayouts lists every encoding older releases wrote, most specific first.
// SQLite CURRENT_TIMESTAMP values and naive layouts are interpreted as UTC.
var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	time.RFC1123Z,
	time.RFC1123,
}

// Format renders t in canonical form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// IsCanonical reports whether s is exactly in canonical form.
func IsCanonical(s string) bool {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return false
	}
	return t.Format(Layout) == s
}

// Classify determines whether s is canonical, a legacy encoding, or invalid.
// For canonical values the returned string is s itself; for legacy values it is
// the canonical rewrite; for invalid values it is empty.
//
// Applying Classify to its own legacy output always yields KindCanonical with
// the same string, so rewriting is idempotent.
func Classify(s string) (Kind, string) {
	if IsCanonical(s) {
		return KindCanonical, s
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return KindInvalid, ""
	}
	if IsCanonical(trimmed) {
		return KindLegacy, trimmed
	}

	if t, ok := parseEpoch(trimmed); ok {
		return KindLegacy, Format(t)
	}

	for _, layout := range legacyLayouts {
		t, err := time.ParseInLocation(layout, trimmed, time.UTC)
		if err == nil {
			return KindLegacy, Format(t)
		}
	}

	return KindInvalid, ""
}

// Parse interprets s in canonical or any legacy encoding.
func Parse(s string) (time.Time, error) {
	kind, canonical := Classify(s)
	if kind == KindInvalid {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return time.Parse(Layout, canonical)
}

// parseEpoch accepts unix seconds (10 digits) and milliseconds (13 digits).
func parseEpoch(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) != 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}
