// Package restore rebuilds the per-record artifact tree from backup
// documents. Each document is scanned in full before any of its records are
// written, and documents are processed in the order given. The backups are
// authoritative: existing artifacts at the same paths are overwritten.
package restore

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/artifact"
	"github.com/kingrea/planrecon/internal/document"
)

// Source is one backup document. Optional sources may be absent.
type Source struct {
	Path     string
	Optional bool
}

// Written is one artifact produced by a restore.
type Written struct {
	Kind document.Kind
	Key  string
	Path string
}

// Result summarizes the restore of a single source.
type Result struct {
	Source  string
	Skipped bool
	Written []Written
}

// Count returns the number of records written of the given kind.
func (r Result) Count(kind document.Kind) int {
	n := 0
	for _, w := range r.Written {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Restorer writes scanned records through an artifact store.
type Restorer struct {
	store *artifact.Store
	out   io.Writer
	log   *zap.Logger
}

// Option customizes a Restorer.
type Option func(*Restorer)

// WithOutput sets where per-record confirmations are printed.
func WithOutput(w io.Writer) Option {
	return func(r *Restorer) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Restorer) {
		if log != nil {
			r.log = log
		}
	}
}

// New builds a restorer.
func New(store *artifact.Store, opts ...Option) *Restorer {
	r := &Restorer{store: store, out: io.Discard, log: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RestoreFile scans one backup and writes every record it contains. A
// missing optional source is reported and skipped; a missing required
// source or any write failure is returned as an error.
func (r *Restorer) RestoreFile(src Source) (Result, error) {
	result := Result{Source: src.Path}
	fmt.Fprintf(r.out, "📂 Processing %s...\n", src.Path)
	doc, err := document.ScanFile(src.Path)
	if err != nil {
		if errors.Is(err, document.ErrMissingSource) && src.Optional {
			fmt.Fprintf(r.out, "⚠️ File not found: %s\n", src.Path)
			r.log.Warn("optional backup missing", zap.String("path", src.Path))
			result.Skipped = true
			return result, nil
		}
		return result, err
	}
	r.log.Info("backup scanned",
		zap.String("path", src.Path),
		zap.Int("epics", len(doc.Epics())),
		zap.Int("stories", len(doc.Stories())))
	for _, rec := range doc.Records {
		path, err := r.store.Write(rec)
		if err != nil {
			return result, fmt.Errorf("restore: %s: %w", src.Path, err)
		}
		result.Written = append(result.Written, Written{Kind: rec.Kind(), Key: rec.Key(), Path: path})
		if rec.Kind() == document.KindEpic {
			fmt.Fprintf(r.out, "  ✅ Restored Epic %s: %s\n", rec.Key(), filepath.Base(path))
		}
	}
	return result, nil
}

// RestoreAll restores each source in order and stops at the first fatal
// error. Artifacts already written are left in place.
func (r *Restorer) RestoreAll(sources []Source) ([]Result, error) {
	fmt.Fprintln(r.out, "🔧 Starting Artifact Restoration...")
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		result, err := r.RestoreFile(src)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	fmt.Fprintln(r.out, "🏁 Restoration Complete.")
	return results, nil
}
