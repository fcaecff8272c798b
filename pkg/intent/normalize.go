package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases the text, strips diacritics, and collapses whitespace
// so the same literal keyword sets work across Latin-script languages.
// Right-to-left scripts pass through untouched apart from case folding.
func Normalize(q string) string {
	low := strings.ToLower(q)
	stripped, _, err := transform.String(stripMarks, low)
	if err != nil {
		stripped = low
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// containsAny reports whether any keyword occurs as a substring of the
// normalized haystack.
func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
