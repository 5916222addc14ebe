// Package strings holds small list helpers used when reading configuration.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value and passes the parts through
// DedupeAndTrim, so " a, b,,a " yields ["a", "b"].
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}

// DedupeAndTrim drops empty entries and repeats after trimming whitespace.
// Order of first occurrence is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
