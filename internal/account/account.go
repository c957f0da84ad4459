// Package account holds the shared account-number helpers used by the
// blacklist store and by every surface that displays an identifier.
package account

import "strings"

// Normalize canonicalizes a bank account number for use as a dedupe and
// lookup key: all whitespace stripped, uppercased.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), "")
	return strings.ToUpper(s)
}

// Mask returns the display form of a normalized account number: first four
// characters, four asterisks, last four. Identifiers shorter than eight
// characters are returned unchanged. Counted in runes, so a multi-byte
// identifier is never split mid-character.
func Mask(normalized string) string {
	runes := []rune(normalized)
	if len(runes) < 8 {
		return normalized
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}
