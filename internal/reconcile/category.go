package reconcile

import "strings"

// Category is the inferred record type of a ledger key.
type Category int

const (
	Unknown Category = iota
	Retro
	Epic
	Story
)

func (c Category) String() string {
	switch c {
	case Retro:
		return "RETRO"
	case Epic:
		return "EPIC"
	case Story:
		return "STORY"
	default:
		return "UNKNOWN"
	}
}

// Categorize classifies a ledger key once, before any lookup:
// keys mentioning "retrospective" are retros, "epic-N" keys without a path
// segment are epics, and everything else is a story.
func Categorize(key string) Category {
	switch {
	case strings.Contains(key, "retrospective"):
		return Retro
	case strings.HasPrefix(key, "epic-") && !strings.Contains(key, "/"):
		return Epic
	default:
		return Story
	}
}

// retroNumber returns the field after the first hyphen, or "?" when the key
// has none.
func retroNumber(key string) string {
	parts := strings.Split(key, "-")
	if len(parts) > 1 {
		return parts[1]
	}
	return "?"
}

// storyFragment drops any leading "epic-NN/" path segment.
func storyFragment(key string) string {
	if _, after, ok := strings.Cut(key, "/"); ok {
		return strings.Split(after, "/")[0]
	}
	return key
}
