// internal/config/config.go
//
// This package handles configuration and the .planrecon directory structure.
// Every project that runs planrecon gets a .planrecon/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/planrecon/internal/artifact"
	"github.com/kingrea/planrecon/internal/audit"
	"github.com/kingrea/planrecon/internal/ledger"
	"github.com/kingrea/planrecon/internal/reconcile"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".planrecon"

	defaultOutputDir    = "_bmad-output"
	defaultManifestName = "stubs.yaml"
)

const defaultProjectConfigYAML = `# planrecon project configuration
version: 1

# Artifact tree. Relative paths resolve against the project root.
paths:
  stories: _bmad-output/stories
  epics: _bmad-output/planning-artifacts/epics
  planning: _bmad-output/planning-artifacts
  retrospectives: _bmad-output/implementation-artifacts
  ledger: _bmad-output/sprint-status.yaml

# Backup documents restored in order. Mark a backup optional when it may be absent.
backups:
  - path: _bmad-output/planning-artifacts/epics.md.bak
  - path: _bmad-output/planning-artifacts/phase-2-epics.md
    optional: true
  - path: _bmad-output/planning-artifacts/phase-2b-epics.md
    optional: true

ledger:
  section_marker: "development_status:"
  comment_marker: "#"
  ignore_statuses: [backlog, deferred, optional, skipped]

stubs:
  manifest: .planrecon/stubs.yaml

audit:
  source_prefixes: [src/]
  # Used by "audit --coverage".
  test_dirs: [src, tests]
  test_suffixes: [.test.ts, .spec.ts, .test.tsx]
  coverage_report: _bmad-output/traceability/global-traceability-report.md
`

// PathsConfig locates the artifact tree and the ledger.
type PathsConfig struct {
	Stories        string `yaml:"stories"`
	Epics          string `yaml:"epics"`
	Planning       string `yaml:"planning"`
	Retrospectives string `yaml:"retrospectives"`
	Ledger         string `yaml:"ledger"`
}

// BackupRef declares one backup document.
type BackupRef struct {
	Path     string `yaml:"path"`
	Optional bool   `yaml:"optional,omitempty"`
}

// LedgerConfig controls ledger parsing and which statuses skip lookup.
type LedgerConfig struct {
	SectionMarker  string   `yaml:"section_marker"`
	CommentMarker  string   `yaml:"comment_marker"`
	IgnoreStatuses []string `yaml:"ignore_statuses"`
}

// StubsConfig points at the placeholder manifest.
type StubsConfig struct {
	Manifest string `yaml:"manifest"`
}

// AuditConfig lists the path prefixes recognized as code references and
// where coverage tracing looks for tests.
type AuditConfig struct {
	SourcePrefixes []string `yaml:"source_prefixes"`
	TestDirs       []string `yaml:"test_dirs"`
	TestSuffixes   []string `yaml:"test_suffixes"`
	CoverageReport string   `yaml:"coverage_report"`
}

// ProjectConfig models .planrecon/config.yaml.
type ProjectConfig struct {
	Version int          `yaml:"version"`
	Paths   PathsConfig  `yaml:"paths"`
	Backups []BackupRef  `yaml:"backups"`
	Ledger  LedgerConfig `yaml:"ledger"`
	Stubs   StubsConfig  `yaml:"stubs"`
	Audit   AuditConfig  `yaml:"audit"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory planrecon operates on
	ProjectDir string

	// StateDir is ProjectDir/.planrecon
	StateDir string

	Project ProjectConfig
}

// InitProjectDir creates the .planrecon directory structure in the given
// project directory and writes a default config.yaml when none exists.
//
// Structure created:
// .planrecon/
// ├── config.yaml
// └── logs/         <- planrecon.log
func InitProjectDir(projectDir string) error {
	if err := os.MkdirAll(LogsDir(projectDir), 0755); err != nil {
		return fmt.Errorf("config: ensure %s: %w", ProjectDirName, err)
	}
	return ensureProjectConfig(filepath.Join(projectDir, ProjectDirName, "config.yaml"))
}

// Load reads .planrecon/config.yaml from projectDir. A missing file yields
// the defaults.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: abs,
		StateDir:   filepath.Join(abs, ProjectDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the logs directory under projectDir's .planrecon folder.
func LogsDir(projectDir string) string {
	return filepath.Join(projectDir, ProjectDirName, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// Layout returns the artifact directories.
func (c *Config) Layout() artifact.Layout {
	return artifact.Layout{
		Stories:        c.Project.Paths.Stories,
		Epics:          c.Project.Paths.Epics,
		Planning:       c.Project.Paths.Planning,
		Retrospectives: c.Project.Paths.Retrospectives,
	}
}

// LedgerPath returns the ledger document location.
func (c *Config) LedgerPath() string {
	return c.Project.Paths.Ledger
}

// LedgerOptions returns the ledger parser settings.
func (c *Config) LedgerOptions() ledger.Options {
	return ledger.Options{
		SectionMarker: c.Project.Ledger.SectionMarker,
		CommentMarker: c.Project.Ledger.CommentMarker,
	}
}

// IgnoreStatuses returns the statuses whose entries skip lookup.
func (c *Config) IgnoreStatuses() []string {
	return append([]string(nil), c.Project.Ledger.IgnoreStatuses...)
}

// Backups returns the configured backup documents in restore order.
func (c *Config) Backups() []BackupRef {
	return append([]BackupRef(nil), c.Project.Backups...)
}

// StubManifestPath returns where the placeholder manifest lives.
func (c *Config) StubManifestPath() string {
	return c.Project.Stubs.Manifest
}

// SourcePrefixes returns the code-reference prefixes used by the auditor.
func (c *Config) SourcePrefixes() []string {
	return append([]string(nil), c.Project.Audit.SourcePrefixes...)
}

// CoverageOptions returns the test search settings for coverage tracing.
func (c *Config) CoverageOptions() audit.CoverageOptions {
	return audit.CoverageOptions{
		TestDirs:     append([]string(nil), c.Project.Audit.TestDirs...),
		TestSuffixes: append([]string(nil), c.Project.Audit.TestSuffixes...),
	}
}

// CoverageReportPath returns where the coverage report is written.
func (c *Config) CoverageReportPath() string {
	return c.Project.Audit.CoverageReport
}

// Resolve makes candidate absolute relative to the project dir.
func (c *Config) Resolve(candidate string) string {
	return resolvePath(c.ProjectDir, candidate)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	planning := filepath.Join(defaultOutputDir, "planning-artifacts")
	return ProjectConfig{
		Version: 1,
		Paths: PathsConfig{
			Stories:        filepath.Join(defaultOutputDir, "stories"),
			Epics:          filepath.Join(planning, "epics"),
			Planning:       planning,
			Retrospectives: filepath.Join(defaultOutputDir, "implementation-artifacts"),
			Ledger:         filepath.Join(defaultOutputDir, "sprint-status.yaml"),
		},
		Backups: []BackupRef{
			{Path: filepath.Join(planning, "epics.md.bak")},
			{Path: filepath.Join(planning, "phase-2-epics.md"), Optional: true},
			{Path: filepath.Join(planning, "phase-2b-epics.md"), Optional: true},
		},
		Ledger: LedgerConfig{
			SectionMarker:  ledger.DefaultSectionMarker,
			CommentMarker:  ledger.DefaultCommentMarker,
			IgnoreStatuses: append([]string(nil), reconcile.DefaultIgnoreStatuses...),
		},
		Stubs: StubsConfig{Manifest: filepath.Join(ProjectDirName, defaultManifestName)},
		Audit: AuditConfig{
			SourcePrefixes: []string{"src/"},
			TestDirs:       []string{"src", "tests"},
			TestSuffixes:   []string{".test.ts", ".spec.ts", ".test.tsx"},
			CoverageReport: filepath.Join(defaultOutputDir, "traceability", "global-traceability-report.md"),
		},
	}
}

// applyDefaults fills only the fields a partial config file leaves unset.
func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	fill := func(dst *string, value string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = value
		}
	}
	fill(&pc.Paths.Stories, defaults.Paths.Stories)
	fill(&pc.Paths.Epics, defaults.Paths.Epics)
	fill(&pc.Paths.Planning, defaults.Paths.Planning)
	fill(&pc.Paths.Retrospectives, defaults.Paths.Retrospectives)
	fill(&pc.Paths.Ledger, defaults.Paths.Ledger)
	fill(&pc.Ledger.SectionMarker, defaults.Ledger.SectionMarker)
	fill(&pc.Ledger.CommentMarker, defaults.Ledger.CommentMarker)
	fill(&pc.Stubs.Manifest, defaults.Stubs.Manifest)
	fill(&pc.Audit.CoverageReport, defaults.Audit.CoverageReport)
	if pc.Backups == nil {
		pc.Backups = defaults.Backups
	}
	if pc.Ledger.IgnoreStatuses == nil {
		pc.Ledger.IgnoreStatuses = defaults.Ledger.IgnoreStatuses
	}
	if pc.Audit.SourcePrefixes == nil {
		pc.Audit.SourcePrefixes = defaults.Audit.SourcePrefixes
	}
	if pc.Audit.TestDirs == nil {
		pc.Audit.TestDirs = defaults.Audit.TestDirs
	}
	if pc.Audit.TestSuffixes == nil {
		pc.Audit.TestSuffixes = defaults.Audit.TestSuffixes
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Paths.Stories = resolvePath(base, pc.Paths.Stories)
	pc.Paths.Epics = resolvePath(base, pc.Paths.Epics)
	pc.Paths.Planning = resolvePath(base, pc.Paths.Planning)
	pc.Paths.Retrospectives = resolvePath(base, pc.Paths.Retrospectives)
	pc.Paths.Ledger = resolvePath(base, pc.Paths.Ledger)
	pc.Stubs.Manifest = resolvePath(base, pc.Stubs.Manifest)
	pc.Audit.CoverageReport = resolvePath(base, pc.Audit.CoverageReport)
	for i := range pc.Backups {
		pc.Backups[i].Path = resolvePath(base, pc.Backups[i].Path)
	}
	pc.Ledger.SectionMarker = strings.TrimSpace(pc.Ledger.SectionMarker)
	pc.Ledger.IgnoreStatuses = normalizeList(pc.Ledger.IgnoreStatuses, false)
	pc.Audit.SourcePrefixes = normalizeList(pc.Audit.SourcePrefixes, true)
	pc.Audit.TestDirs = normalizeList(pc.Audit.TestDirs, false)
	pc.Audit.TestSuffixes = normalizeList(pc.Audit.TestSuffixes, false)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	required := []struct {
		name  string
		value string
	}{
		{"paths.stories", pc.Paths.Stories},
		{"paths.epics", pc.Paths.Epics},
		{"paths.planning", pc.Paths.Planning},
		{"paths.retrospectives", pc.Paths.Retrospectives},
		{"paths.ledger", pc.Paths.Ledger},
		{"ledger.section_marker", pc.Ledger.SectionMarker},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}
	for i, backup := range pc.Backups {
		if backup.Path == "" {
			return fmt.Errorf("backups[%d]: path is required", i)
		}
	}
	if len(pc.Audit.SourcePrefixes) == 0 {
		return fmt.Errorf("audit.source_prefixes must not be empty")
	}
	return nil
}

// normalizeList trims entries and drops blanks and duplicates. Prefixes are
// given a trailing slash.
func normalizeList(values []string, prefix bool) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if prefix && !strings.HasSuffix(trimmed, "/") {
			trimmed += "/"
		}
		if slices.Contains(out, trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
