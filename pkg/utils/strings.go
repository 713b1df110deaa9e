package utils

import "unicode/utf8"

// Truncate cuts s to at most max bytes without splitting a UTF-8 rune at
// the boundary.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
