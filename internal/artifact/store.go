package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/document"
)

// Store manages artifact IO rooted at a Layout.
type Store struct {
	layout Layout
	now    func() time.Time
	log    *zap.Logger
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// WithLogger attaches a logger for write diagnostics.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore builds a store for a layout.
func NewStore(layout Layout, opts ...StoreOption) *Store {
	store := &Store{
		layout: layout,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Layout returns the directories the store writes into.
func (s *Store) Layout() Layout {
	return s.layout
}

// Write persists a scanned record at its canonical path, replacing whatever
// was there. The body is the record's lines joined with "\n". Any error is
// a write failure and should abort the run.
func (s *Store) Write(rec document.Record) (string, error) {
	ref, err := RefFor(rec)
	if err != nil {
		return "", err
	}
	path := ref.Path(s.layout)
	if path == "" {
		return "", fmt.Errorf("artifact: %s path could not be resolved", ref.Name)
	}
	if err := writeFile(path, []byte(rec.Body())); err != nil {
		return "", err
	}
	s.log.Debug("artifact written",
		zap.String("kind", string(ref.Kind)),
		zap.String("key", rec.Key()),
		zap.String("path", path))
	return path, nil
}

// WriteStub persists a placeholder document with stub frontmatter.
func (s *Store) WriteStub(ref Ref, body []byte, meta Metadata) (string, error) {
	path := ref.Path(s.layout)
	if path == "" {
		return "", fmt.Errorf("artifact: %s path could not be resolved", ref.Name)
	}
	prepared := meta.WithDefaults(ref, s.now())
	prepared.Stub = true
	if err := prepared.ValidateFor(ref); err != nil {
		return "", err
	}
	content, err := WriteFrontMatter(prepared, body)
	if err != nil {
		return "", err
	}
	if err := writeFile(path, content); err != nil {
		return "", err
	}
	s.log.Debug("stub written", zap.String("kind", string(ref.Kind)), zap.String("path", path))
	return path, nil
}

// Check inspects a file on disk and returns its state and any stub metadata.
func Check(path string) CheckResult {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Path: path, State: StateMissing}
		}
		return CheckResult{Path: path, State: StateError, Err: err}
	}
	if info.IsDir() {
		return CheckResult{Path: path, State: StateReady}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return CheckResult{Path: path, State: StateError, Err: err}
	}
	result := CheckResult{Path: path, State: StateReady}
	if meta, _, err := ParseFrontMatter(data); err == nil {
		result.Metadata = &meta
	}
	return result
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("artifact: ensure dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return nil
}
