// Package htmlsanitize cleans user-supplied rich text before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is safe for concurrent use once built.
var policy = bluemonday.UGCPolicy()

// strict removes all markup.
var strict = bluemonday.StrictPolicy()

// Sanitize keeps formatting markup (paragraphs, emphasis, lists, links) and
// removes scripts, event handlers and unsafe URLs.
func Sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.TrimSpace(policy.Sanitize(s))
}

// PlainText strips every tag and returns the remaining text.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
