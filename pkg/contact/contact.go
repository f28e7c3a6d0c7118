// Package contact canonicalizes login identifiers (phone numbers or email
// addresses) into the comparable key used everywhere identity matching occurs.
package contact

import "strings"

// Normalize canonicalizes a raw contact string. A string containing '@' is
// treated as an email address and lower-cased; anything else is treated as a
// phone number and stripped of every character that is not a digit or '+'.
// Normalize is idempotent and never fails; callers are responsible for
// rejecting inputs that are too short to be meaningful.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return strings.ToLower(raw)
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsEmail reports whether a raw contact will be normalized as an email
// address rather than a phone number.
func IsEmail(raw string) bool {
	return strings.Contains(raw, "@")
}
