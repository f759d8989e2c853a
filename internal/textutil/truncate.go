// Package textutil shortens values for log output.
package textutil

import "unicode/utf8"

// MaxLogURL is the longest URL written to logs before truncation.
const MaxLogURL = 120

// Truncate cuts s to at most maxBytes bytes, backing off to a rune boundary,
// and appends "..." when anything was removed.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// URL truncates a URL for logging.
func URL(s string) string {
	return Truncate(s, MaxLogURL)
}
