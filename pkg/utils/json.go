package utils

import "encoding/json"

// FirstJSONArray returns the first syntactically complete top-level JSON
// array fragment in s. Bracket depth is tracked with string and escape
// awareness, so brackets inside string values do not confuse the scan.
func FirstJSONArray(s string) (string, bool) {
	return firstBalanced(s, '[', ']')
}

// FirstJSONObject does the same for an object fragment.
func FirstJSONObject(s string) (string, bool) {
	return firstBalanced(s, '{', '}')
}

func firstBalanced(s string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				// Balanced but invalid; keep scanning from here.
				start = -1
			}
		}
	}

	return "", false
}
