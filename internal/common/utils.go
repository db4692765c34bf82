package common

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CapitalizeFirst upper-cases the first rune of s, leaving the rest as the
// provider sent it. Vendors deliver descriptions like "clear sky" or
// "partly cloudy"; only the leading letter changes for display.
func CapitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}

// Truncate shortens s to at most n runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
