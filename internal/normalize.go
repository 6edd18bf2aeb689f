// internal/normalize.go
// ---------------------
// This internal package provides helpers for cleaning user input before it is
// validated or sent: whitespace collapsing and email normalization.
package internal

import "strings"

// NormalizeSpaces collapses runs of whitespace into one space and trims the ends.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims, collapses inner whitespace and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(NormalizeSpaces(s))
}
