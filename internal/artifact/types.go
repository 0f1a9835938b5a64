// Package artifact defines the on-disk layout of restored planning records
// and the store that reads and writes them. Every artifact has a kind and a
// file name; the Layout maps each kind to the directory it lives in.

package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/planrecon/internal/document"
	"github.com/kingrea/planrecon/internal/slug"
)

// Kind captures which directory of the artifact tree an artifact belongs to.
type Kind string

const (
	// KindEpic is a per-epic document under the epics directory.
	KindEpic Kind = "epic"
	// KindStory is a per-story document under the stories directory.
	KindStory Kind = "story"
	// KindRetro is a retrospective document written by a collaborator.
	KindRetro Kind = "retro"
)

// ParseKind maps a manifest or frontmatter string to a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindEpic:
		return KindEpic, nil
	case KindStory:
		return KindStory, nil
	case KindRetro, "retrospective":
		return KindRetro, nil
	default:
		return "", fmt.Errorf("artifact: unknown kind %q", value)
	}
}

// Layout names the directories that make up the artifact tree.
type Layout struct {
	Stories        string
	Epics          string
	Planning       string
	Retrospectives string
}

// Dir returns the directory for a kind.
func (l Layout) Dir(kind Kind) string {
	switch kind {
	case KindEpic:
		return l.Epics
	case KindStory:
		return l.Stories
	case KindRetro:
		return l.Retrospectives
	default:
		return ""
	}
}

// Ref identifies one artifact file by kind and file name.
type Ref struct {
	Kind Kind
	Name string
}

// Path resolves the ref against the layout.
func (r Ref) Path(l Layout) string {
	dir := l.Dir(r.Kind)
	if dir == "" || r.Name == "" {
		return ""
	}
	return filepath.Join(dir, r.Name)
}

// EpicFileName is the canonical file name for an epic id.
func EpicFileName(id string) string {
	return fmt.Sprintf("epic-%s.md", id)
}

// StoryFileName is the canonical file name for a story.
func StoryFileName(major, minor, title string) string {
	return fmt.Sprintf("%s-%s-%s.md", major, minor, slug.Make(title))
}

// RetroFileName is the canonical file name for a retrospective placeholder.
func RetroFileName(epicID string) string {
	return fmt.Sprintf("epic-%s-retrospective.md", epicID)
}

// RefFor derives the canonical ref for a scanned record. The name is
// recomputed on every call so identical input yields identical paths.
func RefFor(rec document.Record) (Ref, error) {
	switch r := rec.(type) {
	case *document.EpicRecord:
		return Ref{Kind: KindEpic, Name: EpicFileName(r.ID)}, nil
	case *document.StoryRecord:
		return Ref{Kind: KindStory, Name: StoryFileName(r.Major, r.Minor, r.Title)}, nil
	default:
		return Ref{}, fmt.Errorf("artifact: unsupported record %T", rec)
	}
}

// Metadata captures provenance stored in stub frontmatter.
type Metadata struct {
	ArtifactID string
	Kind       Kind
	Stub       bool
	Source     string
	Reason     string
	CreatedAt  time.Time
}

// WithDefaults ensures metadata carries the artifact name and a timestamp.
func (m Metadata) WithDefaults(ref Ref, now time.Time) Metadata {
	clone := m
	if clone.ArtifactID == "" {
		clone.ArtifactID = strings.TrimSuffix(ref.Name, filepath.Ext(ref.Name))
	}
	if clone.Kind == "" {
		clone.Kind = ref.Kind
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// ValidateFor ensures metadata matches the ref it is written with.
func (m Metadata) ValidateFor(ref Ref) error {
	if m.ArtifactID == "" {
		return fmt.Errorf("artifact: metadata id is required for %s", ref.Name)
	}
	if m.Kind != ref.Kind {
		return fmt.Errorf("artifact: metadata kind %s does not match ref %s", m.Kind, ref.Kind)
	}
	return nil
}

// State captures the presence of an artifact on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Path     string
	State    State
	Metadata *Metadata
	Err      error
}

// IsStub reports whether the checked file carries stub frontmatter.
func (r CheckResult) IsStub() bool {
	return r.Metadata != nil && r.Metadata.Stub
}
