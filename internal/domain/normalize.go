package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for subscriber name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePlate canonicalizes a license plate for storage and uniqueness
// comparison: trimmed and upper-cased.
func NormalizePlate(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
