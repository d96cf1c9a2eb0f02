// pantry/validate/phone.go
package validate

import "strings"

const (
	// countryPrefix is the international dialing code rewritten to a local "0".
	countryPrefix = "27"

	// LocalPhoneLen is the digit count of a normalized local number.
	LocalPhoneLen = 10
)

// PhoneDigits reduces raw field input to the digits of a local number:
// every non-digit is dropped, a leading "27" becomes "0", and anything past
// LocalPhoneLen digits is cut off.
func PhoneDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, countryPrefix) {
		digits = "0" + digits[len(countryPrefix):]
	}
	if len(digits) > LocalPhoneLen {
		digits = digits[:LocalPhoneLen]
	}
	return digits
}

// FormatPhone renders raw phone input in the canonical local display form
// "XXX YYY ZZZZ". Short inputs get the matching prefix of that grouping:
// up to 3 digits are left alone, 4 to 6 become "XXX YYY".
//
// Separators from earlier passes are stripped first, so the function can be
// applied to its own output on every keystroke without drifting.
func FormatPhone(raw string) string {
	d := PhoneDigits(raw)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + " " + d[3:]
	default:
		return d[:3] + " " + d[3:6] + " " + d[6:]
	}
}
