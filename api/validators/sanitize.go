package validators

import "strings"

// SanitizeString trims surrounding space and keeps at most maxRunes
// characters. A non-positive maxRunes only trims.
func SanitizeString(input string, maxRunes int) string {
	value := strings.TrimSpace(input)
	if maxRunes <= 0 {
		return value
	}
	count := 0
	for i := range value {
		if count == maxRunes {
			return value[:i]
		}
		count++
	}
	return value
}
