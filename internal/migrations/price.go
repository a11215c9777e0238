package migrations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/offerwatch/internal/migration"
)

// priceMarkers are currency markers scrapers left around the amount, in
// lowercase. Longer markers sharing a prefix come first.
var priceMarkers = []string{"zł", "zl", "pln", "eur", "€", "usd", "$"}

// pricePattern matches an amount with optional thousands separators (space,
// dot or comma between groups of three) and an optional one or two digit
// fraction.
var pricePattern = regexp.MustCompile(`^(\d{1,3}(?:[ .,]\d{3})+|\d+)(?:[.,](\d{1,2}))?$`)

// priceAmount is the backfill transform for offers.price. A canonical price
// is a whole amount written as plain digits. Scraped text with separators, a
// fraction or a currency marker is rewritten; fractions are rounded half up.
// Anything else is invalid.
func priceAmount(value string) (migration.Class, string) {
	if isPlainAmount(value) {
		return migration.ClassCanonical, value
	}

	m := pricePattern.FindStringSubmatch(stripPriceDecoration(value))
	if m == nil {
		return migration.ClassInvalid, ""
	}
	digits := strings.NewReplacer(" ", "", ".", "", ",", "").Replace(m[1])
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return migration.ClassInvalid, ""
	}
	if frac := m[2]; frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		if frac >= "50" {
			amount++
		}
	}
	return migration.ClassLegacy, strconv.FormatInt(amount, 10)
}

// isPlainAmount reports whether s is a non-negative integer without leading
// zeros.
func isPlainAmount(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') || len(s) > 18 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// stripPriceDecoration lowercases s, folds no-break spaces into spaces and
// removes one leading and one trailing currency marker and a ",-" suffix.
func stripPriceDecoration(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\u202f' {
			return ' '
		}
		return r
	}, strings.ToLower(s))
	s = strings.TrimSpace(s)

	for _, marker := range priceMarkers {
		if rest, ok := strings.CutPrefix(s, marker); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}
	for _, marker := range priceMarkers {
		if rest, ok := strings.CutSuffix(s, marker); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}
	for _, suffix := range []string{",-", ".-"} {
		if rest, ok := strings.CutSuffix(s, suffix); ok {
			s = strings.TrimSpace(rest)
		}
	}
	return s
}
