// Package slug turns free-form titles into filesystem-safe filename tokens.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// apostrophes are elided so "What's" becomes "whats", not "what-s".
	apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "")
)

// Make lowercases text, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims hyphens from both ends. Apostrophes are
// dropped before collapsing. Empty input yields an empty slug.
func Make(text string) string {
	lowered := apostrophes.Replace(strings.ToLower(text))
	return strings.Trim(nonAlnum.ReplaceAllString(lowered, "-"), "-")
}
