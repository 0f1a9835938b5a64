package artifact

import (
	"os"
	"path/filepath"
	"strings"
)

// Finder locates an artifact whose file name matches a fragment.
type Finder interface {
	Find(dir, fragment string) (string, bool)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(dir, fragment string) (string, bool)

// Find calls f.
func (f FinderFunc) Find(dir, fragment string) (string, bool) { return f(dir, fragment) }

// DirFinder searches the real filesystem.
var DirFinder Finder = FinderFunc(Find)

// Find looks for fragment in dir: first an exact file name, then the name
// with ".md" appended, then any entry containing fragment. When several
// entries contain the fragment the lexicographically smallest wins. A
// directory that does not exist or cannot be read is simply not-found.
func Find(dir, fragment string) (string, bool) {
	if dir == "" || fragment == "" {
		return "", false
	}
	if _, err := os.Stat(dir); err != nil {
		return "", false
	}
	for _, name := range []string{fragment, fragment + ".md"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	names := ListNames(dir)
	for _, name := range names {
		if strings.Contains(name, fragment) {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

// ListNames returns the entry names of dir in lexical order (as os.ReadDir
// yields them), or nil when it cannot be read.
func ListNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
