// Package reconcile checks ledger entries against the artifact tree and
// aggregates the results into a pass/fail report.
package reconcile

import (
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/artifact"
	"github.com/kingrea/planrecon/internal/ledger"
)

// DefaultIgnoreStatuses are statuses whose artifacts are not expected to exist.
var DefaultIgnoreStatuses = []string{"backlog", "deferred", "optional", "skipped"}

const maxSuggestions = 3

// Attempt records one directory/fragment lookup.
type Attempt struct {
	Dir      string
	Fragment string
}

func (a Attempt) String() string {
	return filepath.Join(a.Dir, a.Fragment)
}

// Outcome is the classification of a single ledger entry.
type Outcome struct {
	Entry       ledger.Entry
	Category    Category
	Ignored     bool
	Found       bool
	Path        string
	Stub        bool
	Attempts    []Attempt
	Suggestions []string
}

// Missing reports whether the entry needed an artifact and none was found.
func (o Outcome) Missing() bool {
	return !o.Ignored && !o.Found
}

// Resolver maps ledger entries to expected artifact locations.
type Resolver struct {
	layout  artifact.Layout
	ignore  map[string]struct{}
	finder  artifact.Finder
	suggest bool
	log     *zap.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithIgnoreStatuses replaces the ignorable status set.
func WithIgnoreStatuses(statuses ...string) Option {
	return func(r *Resolver) {
		r.ignore = make(map[string]struct{}, len(statuses))
		for _, status := range statuses {
			if trimmed := strings.TrimSpace(status); trimmed != "" {
				r.ignore[trimmed] = struct{}{}
			}
		}
	}
}

// WithFinder overrides how directories are searched.
func WithFinder(f artifact.Finder) Option {
	return func(r *Resolver) {
		if f != nil {
			r.finder = f
		}
	}
}

// WithSuggestions toggles nearest-name hints for missing entries.
func WithSuggestions(enabled bool) Option {
	return func(r *Resolver) {
		r.suggest = enabled
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver builds a resolver over layout.
func NewResolver(layout artifact.Layout, opts ...Option) *Resolver {
	r := &Resolver{
		layout:  layout,
		finder:  artifact.DirFinder,
		suggest: true,
		log:     zap.NewNop(),
	}
	WithIgnoreStatuses(DefaultIgnoreStatuses...)(r)
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Ignores reports whether status skips lookup.
func (r *Resolver) Ignores(status string) bool {
	_, ok := r.ignore[status]
	return ok
}

// plan returns the ordered lookups for a key of the given category.
func (r *Resolver) plan(key string, category Category) []Attempt {
	switch category {
	case Retro:
		base := "epic-" + retroNumber(key)
		return []Attempt{
			{Dir: r.layout.Retrospectives, Fragment: base + "-retro"},
			{Dir: r.layout.Retrospectives, Fragment: base + "-retrospective"},
		}
	case Epic:
		fragment := "epic-" + strings.TrimPrefix(key, "epic-")
		return []Attempt{
			{Dir: r.layout.Epics, Fragment: fragment},
			{Dir: r.layout.Planning, Fragment: fragment},
		}
	default:
		return []Attempt{{Dir: r.layout.Stories, Fragment: storyFragment(key)}}
	}
}

// Resolve classifies one entry. Ignorable statuses never touch the
// filesystem.
func (r *Resolver) Resolve(entry ledger.Entry) Outcome {
	outcome := Outcome{Entry: entry, Category: Categorize(entry.Key)}
	if r.Ignores(entry.Status) {
		outcome.Ignored = true
		return outcome
	}
	for _, attempt := range r.plan(entry.Key, outcome.Category) {
		outcome.Attempts = append(outcome.Attempts, attempt)
		if path, ok := r.finder.Find(attempt.Dir, attempt.Fragment); ok {
			outcome.Found = true
			outcome.Path = path
			outcome.Stub = artifact.Check(path).IsStub()
			break
		}
	}
	if !outcome.Found && r.suggest {
		outcome.Suggestions = r.suggestions(outcome.Attempts)
	}
	r.log.Debug("ledger entry resolved",
		zap.String("key", entry.Key),
		zap.String("status", entry.Status),
		zap.Stringer("category", outcome.Category),
		zap.Bool("found", outcome.Found),
		zap.String("path", outcome.Path))
	return outcome
}

// ResolveAll resolves every ledger entry in order.
func (r *Resolver) ResolveAll(l *ledger.Ledger) *Report {
	report := &Report{}
	if l != nil {
		report.Source = l.Source
		for _, entry := range l.Entries {
			report.Add(r.Resolve(entry))
		}
	}
	return report
}

// suggestions ranks the entries of the searched directories against each
// attempted fragment and returns the best distinct names.
func (r *Resolver) suggestions(attempts []Attempt) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, attempt := range attempts {
		names := artifact.ListNames(attempt.Dir)
		if len(names) == 0 {
			continue
		}
		for _, match := range fuzzy.Find(attempt.Fragment, names) {
			if _, dup := seen[match.Str]; dup {
				continue
			}
			seen[match.Str] = struct{}{}
			out = append(out, match.Str)
			if len(out) == maxSuggestions {
				return out
			}
		}
	}
	return out
}
