package document

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// ErrMissingSource indicates a backup document does not exist.
var ErrMissingSource = errors.New("document: source document not found")

var (
	epicHeader  = regexp.MustCompile(`^##\s+Epic\s+(\d+):\s+(.+)$`)
	storyHeader = regexp.MustCompile(`^###\s+(?:Story\s+)?(\d+)[-.](\d+):\s+(.+)$`)
)

// Document is the ordered result of scanning one backup file.
type Document struct {
	Source  string
	Records []Record
}

// Epics returns the epic records in finalization order.
func (d *Document) Epics() []*EpicRecord {
	var out []*EpicRecord
	for _, rec := range d.Records {
		if epic, ok := rec.(*EpicRecord); ok {
			out = append(out, epic)
		}
	}
	return out
}

// Stories returns the story records in finalization order.
func (d *Document) Stories() []*StoryRecord {
	var out []*StoryRecord
	for _, rec := range d.Records {
		if story, ok := rec.(*StoryRecord); ok {
			out = append(out, story)
		}
	}
	return out
}

// Story returns the first story with the given identifiers.
func (d *Document) Story(major, minor string) (*StoryRecord, bool) {
	for _, story := range d.Stories() {
		if story.Major == major && story.Minor == minor {
			return story, true
		}
	}
	return nil, false
}

// scanState holds the open epic and story buffers for one pass.
type scanState struct {
	epic  *EpicRecord
	story *StoryRecord
	out   []Record
}

func (s *scanState) closeStory() {
	if s.story == nil {
		return
	}
	s.out = append(s.out, s.story)
	s.story = nil
}

func (s *scanState) closeEpic() {
	if s.epic == nil {
		return
	}
	s.out = append(s.out, s.epic)
	s.epic = nil
}

func (s *scanState) line(line string) {
	if m := epicHeader.FindStringSubmatch(line); m != nil {
		s.closeStory()
		s.closeEpic()
		s.epic = &EpicRecord{ID: m[1], Title: m[2], Lines: []string{line}}
		return
	}
	if m := storyHeader.FindStringSubmatch(line); m != nil {
		s.closeStory()
		s.story = &StoryRecord{Major: m[1], Minor: m[2], Title: m[3], Lines: []string{line}}
		if s.epic != nil {
			s.story.Epic = s.epic.ID
			s.epic.Lines = append(s.epic.Lines, line)
			s.epic.Stories = append(s.epic.Stories, s.story.Key())
		}
		return
	}
	if s.story != nil {
		s.story.Lines = append(s.story.Lines, line)
	}
	if s.epic != nil {
		s.epic.Lines = append(s.epic.Lines, line)
	}
}

// Scan classifies each line and returns the finalized records. A story is
// always emitted before the epic that encloses it. Lines that look like
// headers but do not match either pattern are kept as body text.
func Scan(lines []string) []Record {
	state := &scanState{}
	for _, line := range lines {
		state.line(line)
	}
	state.closeStory()
	state.closeEpic()
	return state.out
}

// SplitLines splits content on "\n" without dropping a trailing empty line,
// so joining the result with "\n" reproduces the input.
func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}

// Read scans an entire reader.
func Read(r io.Reader, source string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", source, err)
	}
	return &Document{Source: source, Records: Scan(SplitLines(string(data)))}, nil
}

// ScanFile scans the document at path. A missing file yields an error
// wrapping ErrMissingSource.
func ScanFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("document: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}
