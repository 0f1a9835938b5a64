package stub

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/artifact"
	"github.com/kingrea/planrecon/internal/document"
)

const reasonPlaceholder = "placeholder"

// Result lists what a generator run produced.
type Result struct {
	Created   []string
	Extracted []string
	// NotFound holds extract ids absent from the backup.
	NotFound []string
}

// Generator writes manifest entries through an artifact store.
type Generator struct {
	store    *artifact.Store
	out      io.Writer
	log      *zap.Logger
	fallback string
}

// Option customizes a Generator.
type Option func(*Generator)

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(g *Generator) {
		if w != nil {
			g.out = w
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

// WithDefaultSource sets the backup used when the manifest names none.
func WithDefaultSource(path string) Option {
	return func(g *Generator) {
		g.fallback = path
	}
}

// NewGenerator builds a generator.
func NewGenerator(store *artifact.Store, opts ...Option) *Generator {
	g := &Generator{store: store, out: io.Discard, log: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Apply writes every placeholder in m, then extracts the listed stories.
// Write failures abort; an extract id missing from the backup does not.
func (g *Generator) Apply(m *Manifest) (Result, error) {
	var result Result
	fmt.Fprintln(g.out, "🔧 Starting Stub Generation...")
	for _, e := range m.Epics {
		ref := artifact.Ref{Kind: artifact.KindEpic, Name: artifact.EpicFileName(e.ID)}
		if err := g.writeStub(&result, ref, epicBody(e)); err != nil {
			return result, err
		}
	}
	for _, s := range m.Stories {
		ref := artifact.Ref{Kind: artifact.KindStory, Name: s.Name + ".md"}
		if err := g.writeStub(&result, ref, storyBody(s)); err != nil {
			return result, err
		}
	}
	for _, r := range m.Retros {
		ref := artifact.Ref{Kind: artifact.KindRetro, Name: artifact.RetroFileName(r.Epic)}
		if err := g.writeStub(&result, ref, retroBody(r)); err != nil {
			return result, err
		}
	}
	if len(m.Extract) > 0 {
		if err := g.extract(&result, m); err != nil {
			return result, err
		}
	}
	fmt.Fprintln(g.out, "🏁 Stub Generation Complete.")
	return result, nil
}

func (g *Generator) writeStub(result *Result, ref artifact.Ref, body string) error {
	path, err := g.store.WriteStub(ref, []byte(body), artifact.Metadata{Reason: reasonPlaceholder})
	if err != nil {
		return fmt.Errorf("stub: %w", err)
	}
	result.Created = append(result.Created, path)
	fmt.Fprintf(g.out, "  ✅ Created Stub: %s\n", path)
	return nil
}

// extract copies stories out of the backup as regular artifacts. The
// backup is scanned once for all ids.
func (g *Generator) extract(result *Result, m *Manifest) error {
	source := m.Source
	if source == "" {
		source = g.fallback
	}
	if source == "" {
		return fmt.Errorf("stub: extract requires a source backup")
	}
	doc, err := document.ScanFile(source)
	if err != nil {
		return err
	}
	for _, id := range m.Extract {
		fmt.Fprintf(g.out, "🔍 Searching for Story %s in backup...\n", id)
		major, minor := splitStoryID(id)
		story, ok := doc.Story(major, minor)
		if !ok {
			fmt.Fprintf(g.out, "❌ Could not find %s in backup\n", id)
			g.log.Warn("story not in backup", zap.String("id", id), zap.String("source", source))
			result.NotFound = append(result.NotFound, id)
			continue
		}
		path, err := g.store.Write(story)
		if err != nil {
			return fmt.Errorf("stub: %w", err)
		}
		result.Extracted = append(result.Extracted, path)
		fmt.Fprintf(g.out, "  ✅ Extracted Story %s: %s\n", id, filepath.Base(path))
	}
	return nil
}

func epicBody(e EpicStub) string {
	var b strings.Builder
	if e.Title != "" {
		fmt.Fprintf(&b, "# Epic %s: %s\n\n", e.ID, e.Title)
	} else {
		fmt.Fprintf(&b, "# Epic %s\n\n", e.ID)
	}
	if e.Goal != "" {
		fmt.Fprintf(&b, "**Goal**: %s\n\n", e.Goal)
	}
	b.WriteString("**Stories**:\n*Reconstructed from sprint status*\n")
	return b.String()
}

func storyBody(s StoryStub) string {
	title := s.Title
	if title == "" {
		title = s.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Story: %s\n\n", title)
	if s.Goal != "" {
		fmt.Fprintf(&b, "**Goal**: %s\n\n", s.Goal)
	}
	status := s.Status
	if status == "" {
		status = "Done"
	}
	fmt.Fprintf(&b, "**Status**: %s\n", status)
	return b.String()
}

func retroBody(r RetroStub) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Retrospective - Epic %s\n\n", r.Epic)
	b.WriteString("**Status**: Done (Restored Placeholder)\n")
	if r.Date != "" {
		fmt.Fprintf(&b, "**Date**: %s\n", r.Date)
	}
	b.WriteString("\n## Overview\nPlaceholder for missing retrospective artifact. Validated as complete in sprint status.\n")
	return b.String()
}
