// pantry/text/fold.go
package text

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFD, strip combining marks (Mn), NFC. Transformers are stateful, so each
// caller borrows its own chain.
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		)
	},
}

// Fold lowercases s and strips combining diacritics, so "José@Example.com"
// and "jose@example.com" fold to the same value. It does not transliterate:
// "ø" and "ß" are kept. Blank input yields "".
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isASCIILower(s) {
		return s
	}

	s = strings.ToLower(s)
	t := chainPool.Get().(transform.Transformer)
	defer func() {
		t.Reset()
		chainPool.Put(t)
	}()
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpace trims s and replaces every run of Unicode whitespace with a
// single ASCII space. Used for display names typed into the register form.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isASCIILower(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || ('A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
