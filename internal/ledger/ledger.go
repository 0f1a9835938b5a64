// Package ledger reads the sprint status ledger: a loosely YAML-shaped file
// whose development section maps record keys to status tokens. The file is
// not parsed as YAML because its indentation is not reliable; instead each
// line of the section is scanned for a `key: value` pair.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

var (
	// ErrMissingSource indicates the ledger document does not exist.
	ErrMissingSource = errors.New("ledger: ledger document not found")
	// ErrNoSection indicates the ledger has no line starting with the section marker.
	ErrNoSection = errors.New("ledger: section marker not found")
)

const (
	DefaultSectionMarker = "development_status:"
	DefaultCommentMarker = "#"
)

// Options controls which section is captured and how comments are recognized.
type Options struct {
	SectionMarker string
	CommentMarker string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.SectionMarker) == "" {
		o.SectionMarker = DefaultSectionMarker
	}
	if o.CommentMarker == "" {
		o.CommentMarker = DefaultCommentMarker
	}
	return o
}

// Entry is one key/status pair. Line is the 1-based source line.
type Entry struct {
	Key    string
	Status string
	Line   int
}

// Ledger holds entries in first-seen order.
type Ledger struct {
	Source  string
	Entries []Entry
	index   map[string]int
}

// Len returns the number of distinct keys.
func (l *Ledger) Len() int { return len(l.Entries) }

// Status returns the status recorded for key.
func (l *Ledger) Status(key string) (string, bool) {
	idx, ok := l.index[key]
	if !ok {
		return "", false
	}
	return l.Entries[idx].Status, true
}

// set records key -> status. A repeated key keeps its original position but
// takes the newer status.
func (l *Ledger) set(entry Entry) {
	if l.index == nil {
		l.index = map[string]int{}
	}
	if idx, ok := l.index[entry.Key]; ok {
		l.Entries[idx].Status = entry.Status
		l.Entries[idx].Line = entry.Line
		return
	}
	l.index[entry.Key] = len(l.Entries)
	l.Entries = append(l.Entries, entry)
}

// Parse scans r for the configured section and collects every `key: value`
// line from the marker to the end of input. Capture does not stop at a
// dedent. Marker lines, comment lines, blank lines, lines without a colon
// and keys starting with "=" are skipped; trailing comments are cut from
// values. Lines have no length limit.
func Parse(r io.Reader, opts Options) (*Ledger, error) {
	opts = opts.withDefaults()
	ledger := &Ledger{}
	reader := bufio.NewReader(r)
	capturing := false
	lineNo := 0
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("ledger: read: %w", readErr)
		}
		if line == "" && readErr == io.EOF {
			break
		}
		lineNo++
		if entry, ok := parseLine(strings.TrimSpace(line), opts, &capturing); ok {
			entry.Line = lineNo
			ledger.set(entry)
		}
		if readErr == io.EOF {
			break
		}
	}
	if !capturing {
		return nil, fmt.Errorf("%w: %q", ErrNoSection, opts.SectionMarker)
	}
	return ledger, nil
}

// parseLine handles one trimmed line. The section marker opens capture
// wherever it appears and is never an entry itself.
func parseLine(trimmed string, opts Options, capturing *bool) (Entry, bool) {
	if strings.HasPrefix(trimmed, opts.SectionMarker) {
		*capturing = true
		return Entry{}, false
	}
	if !*capturing || trimmed == "" || strings.HasPrefix(trimmed, opts.CommentMarker) {
		return Entry{}, false
	}
	keyPart, valuePart, ok := strings.Cut(trimmed, ":")
	if !ok {
		return Entry{}, false
	}
	key := strings.TrimSpace(keyPart)
	if key == "" || strings.HasPrefix(key, "=") {
		return Entry{}, false
	}
	value, _, _ := strings.Cut(valuePart, opts.CommentMarker)
	return Entry{Key: key, Status: strings.TrimSpace(value)}, true
}

// ParseFile parses the ledger at path. A missing file yields an error
// wrapping ErrMissingSource.
func ParseFile(path string, opts Options) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	defer f.Close()
	ledger, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ledger.Source = path
	return ledger, nil
}
