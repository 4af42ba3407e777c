// Package slug derives filesystem- and URL-safe names from free text.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Make lowercases the input, strips diacritics and replaces whitespace and
// every other run outside [a-z0-9] with a single hyphen, so adjacent words
// never glue together.
func Make(input string) string {
	decomposed := norm.NFD.String(input)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.ToLower(b.String())
	out = invalidChars.ReplaceAllString(out, "-")
	out = dashRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}
