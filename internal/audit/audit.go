// Package audit checks that source files referenced by story artifacts
// exist in the project tree.
package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrMissingReferences is returned by Report.Err when any reference is absent.
var ErrMissingReferences = errors.New("audit: referenced files missing")

// MaxListedUnreferenced caps how many unreferenced stories Render lists.
const MaxListedUnreferenced = 10

// StoryAudit is the result for one story file.
type StoryAudit struct {
	Name       string
	References []string
	Missing    []string
}

// Report aggregates every story audited.
type Report struct {
	Stories []StoryAudit
}

// WithMissing returns the stories that reference absent files.
func (r *Report) WithMissing() []StoryAudit {
	var out []StoryAudit
	for _, s := range r.Stories {
		if len(s.Missing) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Unreferenced returns the names of stories with no detected references.
func (r *Report) Unreferenced() []string {
	var out []string
	for _, s := range r.Stories {
		if len(s.References) == 0 {
			out = append(out, s.Name)
		}
	}
	return out
}

// Err returns ErrMissingReferences when any story has missing files.
func (r *Report) Err() error {
	n := len(r.WithMissing())
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d stories affected", ErrMissingReferences, n)
}

// Auditor extracts code references from stories and checks them on disk.
type Auditor struct {
	root     string
	patterns []*regexp.Regexp
	links    []*regexp.Regexp
	log      *zap.Logger
}

// New builds an auditor that resolves references against root. Each prefix
// (e.g. "src/") yields a backticked-path pattern and a "Target:" pattern,
// plus a markdown-link pattern used by Coverage.
func New(root string, prefixes []string, log *zap.Logger) (*Auditor, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("audit: at least one source prefix is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Auditor{root: root, log: log}
	for _, prefix := range prefixes {
		quoted := regexp.QuoteMeta(prefix)
		a.patterns = append(a.patterns,
			regexp.MustCompile("`("+quoted+"[^`]+\\.[a-z]+)`"),
			regexp.MustCompile(`Target: (`+quoted+`[^\s]+)`),
		)
		a.links = append(a.links, regexp.MustCompile(`\[[^\]]*\]\(([^)]*`+quoted+`[^)]*)\)`))
	}
	return a, nil
}

// References returns the distinct code references in content, sorted.
func (a *Auditor) References(content string) []string {
	seen := map[string]struct{}{}
	for _, pattern := range a.patterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// AuditDir audits every *.md file directly inside dir, in name order. A
// missing directory yields an empty report.
func (a *Auditor) AuditDir(dir string) (*Report, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("audit: list %s: %w", dir, err)
	}
	report := &Report{}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read %s: %w", path, err)
		}
		story := StoryAudit{Name: filepath.Base(path), References: a.References(string(data))}
		for _, ref := range story.References {
			if !a.exists(ref) {
				story.Missing = append(story.Missing, ref)
			}
		}
		a.log.Debug("story audited",
			zap.String("story", story.Name),
			zap.Int("references", len(story.References)),
			zap.Strings("missing", story.Missing))
		report.Stories = append(report.Stories, story)
	}
	return report, nil
}

func (a *Auditor) exists(ref string) bool {
	_, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(strings.TrimSpace(ref))))
	return err == nil
}
