// Package stub writes placeholder artifacts for ledger entries whose real
// documents were lost, and re-extracts individual stories from a backup.
package stub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoManifest indicates the manifest file does not exist.
var ErrNoManifest = errors.New("stub: manifest not found")

var storyIDPattern = regexp.MustCompile(`^(\d+)[.-](\d+)$`)

// EpicStub describes a placeholder epic document.
type EpicStub struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Goal  string `yaml:"goal,omitempty"`
}

// StoryStub describes a placeholder story. Name is the file name without
// extension, e.g. "production-setup".
type StoryStub struct {
	Name   string `yaml:"name"`
	Title  string `yaml:"title"`
	Goal   string `yaml:"goal,omitempty"`
	Status string `yaml:"status,omitempty"`
}

// RetroStub describes a placeholder retrospective for one epic.
type RetroStub struct {
	Epic string `yaml:"epic"`
	Date string `yaml:"date,omitempty"`
}

// Manifest models .planrecon/stubs.yaml.
type Manifest struct {
	// Source is the backup searched by Extract. Empty means the first
	// configured backup.
	Source  string      `yaml:"source,omitempty"`
	Date    string      `yaml:"date,omitempty"`
	Epics   []EpicStub  `yaml:"epics"`
	Stories []StoryStub `yaml:"stories"`
	Retros  []RetroStub `yaml:"retros"`
	// Extract lists story ids ("6.6") to copy out of Source.
	Extract []string `yaml:"extract"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
		}
		return nil, fmt.Errorf("stub: read %s: %w", path, err)
	}
	return ParseManifest(data, path)
}

// ParseManifest decodes manifest YAML. name is used in error messages.
func ParseManifest(data []byte, name string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("stub: parse %s: %w", name, err)
	}
	m.normalize()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("stub: %s: %w", name, err)
	}
	return &m, nil
}

// Empty reports whether the manifest declares nothing to do.
func (m *Manifest) Empty() bool {
	return len(m.Epics)+len(m.Stories)+len(m.Retros)+len(m.Extract) == 0
}

func (m *Manifest) normalize() {
	m.Source = strings.TrimSpace(m.Source)
	m.Date = strings.TrimSpace(m.Date)
	for i := range m.Epics {
		m.Epics[i].ID = strings.TrimPrefix(strings.TrimSpace(m.Epics[i].ID), "epic-")
		m.Epics[i].Title = strings.TrimSpace(m.Epics[i].Title)
	}
	for i := range m.Stories {
		m.Stories[i].Name = strings.TrimSuffix(strings.TrimSpace(m.Stories[i].Name), ".md")
		m.Stories[i].Title = strings.TrimSpace(m.Stories[i].Title)
	}
	for i := range m.Retros {
		m.Retros[i].Epic = strings.TrimPrefix(strings.TrimSpace(m.Retros[i].Epic), "epic-")
		if m.Retros[i].Date == "" {
			m.Retros[i].Date = m.Date
		}
	}
	for i := range m.Extract {
		m.Extract[i] = strings.TrimSpace(m.Extract[i])
	}
}

func (m *Manifest) validate() error {
	for i, e := range m.Epics {
		if e.ID == "" {
			return fmt.Errorf("epics[%d]: id is required", i)
		}
	}
	for i, s := range m.Stories {
		if s.Name == "" || strings.ContainsAny(s.Name, `/\`) {
			return fmt.Errorf("stories[%d]: name must be a plain file name", i)
		}
	}
	for i, r := range m.Retros {
		if r.Epic == "" {
			return fmt.Errorf("retros[%d]: epic is required", i)
		}
	}
	for i, id := range m.Extract {
		if !storyIDPattern.MatchString(id) {
			return fmt.Errorf("extract[%d]: %q is not a story id like 6.6", i, id)
		}
	}
	return nil
}

// splitStoryID returns the major and minor parts of "6.6" or "6-6".
func splitStoryID(id string) (string, string) {
	m := storyIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}
