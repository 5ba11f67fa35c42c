package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g., "Café" -> "Cafe").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize maps a raw food label or menu name to its canonical comparison key.
// Lowercase, diacritics stripped, anything outside [a-z0-9 ] becomes a space,
// runs of whitespace collapse to one space, leading/trailing space trimmed.
// Total and idempotent; garbage input yields an empty string. Normalize does
// not stem or singularize: "item" and "items" stay distinct keys.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = removeDiacritics(text)

	var b strings.Builder
	b.Grow(len(text))
	space := true // collapse leading whitespace too
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// TitleCase renders a raw detected label in a human-presentable form
// ("chicken curry" -> "Chicken Curry"). Used for line items that did not
// match any catalog entry.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
