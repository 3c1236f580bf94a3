package dateref

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalize lower-cases text and composes it to NFC so that keyword
// matching is independent of how the input method encoded the diacritics.
func normalize(text string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
}

// Fold strips Vietnamese diacritics, so "Thứ Năm" becomes "Thu Nam".
// Case is preserved and "đ" becomes "d".
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch r {
		case 'đ':
			r = 'd'
		case 'Đ':
			r = 'D'
		}
		b.WriteRune(r)
	}
	return b.String()
}
