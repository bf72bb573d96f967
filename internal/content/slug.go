package content

import (
	"regexp"
	"strings"
)

var (
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugDisallowed = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify lowercases text, turns whitespace runs into hyphens and drops everything
// outside [a-z0-9-].
func Slugify(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	hyphenated := slugWhitespace.ReplaceAllString(lowered, "-")
	return slugDisallowed.ReplaceAllString(hyphenated, "")
}
