package sources

import (
	"regexp"
	"strings"
)

// minAbstractLength is the shortest abstract worth keeping. Anything
// below this is a fragment or a truncated placeholder and is treated
// as absent rather than dropping the whole record.
const minAbstractLength = 80

// abstractPlaceholders are provider strings that stand in for a
// missing abstract. Compared case-insensitively after normalization.
var abstractPlaceholders = map[string]struct{}{
	"n/a":                    {},
	"na":                     {},
	"none":                   {},
	"not available":          {},
	"abstract not available": {},
	"no abstract available":  {},
	"no abstract":            {},
}

var yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// NormalizeWhitespace collapses runs of whitespace (including
// newlines from XML pretty-printing) into single spaces and trims.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanAbstract normalizes a provider abstract and decides whether it
// is usable. Placeholder values and fragments shorter than the minimum
// length come back as the empty string; the caller keeps the record
// either way.
func CleanAbstract(s string) string {
	s = NormalizeWhitespace(s)
	if s == "" {
		return ""
	}
	if _, ok := abstractPlaceholders[strings.ToLower(strings.TrimRight(s, "."))]; ok {
		return ""
	}
	if len(s) < minAbstractLength {
		return ""
	}
	return s
}

// ExtractYear pulls the first plausible four-digit year out of a
// free-form date string. Returns "" when none is found.
func ExtractYear(s string) string {
	return yearPattern.FindString(s)
}
