// Package slug turns human readable labels into alias-safe tokens.
package slug

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Whitespace here also covers \v and the \x1c-\x1f separators, which Go's
// \s leaves out.
var (
	invalidChars = regexp.MustCompile(`[^\w\s\v\x1c-\x1f-]`)
	separators   = regexp.MustCompile(`[-\s\v\x1c-\x1f]+`)
)

// Make decomposes label (NFKD), drops anything outside ASCII, lower-cases
// it and joins the remaining words with single hyphens.
func Make(label string) string {
	decomposed := norm.NFKD.String(label)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(b.String())
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
