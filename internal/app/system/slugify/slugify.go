// Package slugify derives URL slugs from titles and names.
package slugify

import (
	"regexp"
	"strings"
)

var (
	// Word characters here are ASCII letters, digits and underscore; Cyrillic
	// letters are kept as-is.
	disallowed = regexp.MustCompile(`[^\w\sа-яё]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Make lowercases s, strips everything except word characters, whitespace and
// Cyrillic letters, and replaces each whitespace run with a single "-".
// Surrounding whitespace is trimmed first, so a slug never starts or ends
// with "-".
//
//	Make("Поход на гору!") == "поход-на-гору"
func Make(s string) string {
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return spaces.ReplaceAllString(s, "-")
}
