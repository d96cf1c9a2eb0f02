// pantry/validate/email.go

// Package validate normalizes and checks the two inputs the auth forms care
// about: email addresses and South African local phone numbers.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// emailPattern is local@domain.tld with no '@' in either part. RE2's \s is
// ASCII only, so hasSpace covers the rest of Unicode whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailValid is a light, readable guardrail for sign-in and sign-up forms.
// It is not an RFC validator: it accepts anything shaped like
// local@domain.tld, where neither side contains whitespace or '@' and the
// domain has at least one dot between two non-empty segments.
//
// Local-only addresses ("admin@server") are rejected. No DNS or mailbox
// lookups happen here.
func EmailValid(s string) bool {
	if s == "" || hasSpace(s) {
		return false
	}
	return emailPattern.MatchString(s)
}

// hasSpace reports whether s holds any Unicode whitespace, including the
// byte order mark browsers also treat as space.
func hasSpace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	}) >= 0
}

// NormalizeEmail trims and lowercases an address for storage or comparison.
// It does not validate.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
