// Package document scans planning backup documents into epic and story
// records. Only two heading shapes are recognized:
//
//	## Epic <n>: <title>
//	### [Story ]<major>(.|-)<minor>: <title>
//
// Everything else is body text belonging to whichever records are open.
package document

import "strings"

// Kind identifies the record variant.
type Kind string

const (
	KindEpic  Kind = "epic"
	KindStory Kind = "story"
)

// Record is a finalized epic or story. The set of implementations is closed.
type Record interface {
	Kind() Kind
	// Key is a stable identity such as "6" for an epic or "6-6" for a story.
	Key() string
	// Body returns the record's source lines joined with "\n".
	Body() string
	record()
}

// EpicRecord spans an epic header and every line up to the next epic header,
// including nested story headers and bodies verbatim.
type EpicRecord struct {
	ID    string
	Title string
	Lines []string
	// Stories lists the keys of stories that were opened inside this epic.
	Stories []string
}

func (e *EpicRecord) Kind() Kind   { return KindEpic }
func (e *EpicRecord) Key() string  { return e.ID }
func (e *EpicRecord) Body() string { return strings.Join(e.Lines, "\n") }
func (*EpicRecord) record()        {}

// StoryRecord spans a story header and every line up to the next story or
// epic header. Epic is empty when the story appeared outside any epic.
type StoryRecord struct {
	Major string
	Minor string
	Title string
	Epic  string
	Lines []string
}

func (s *StoryRecord) Kind() Kind   { return KindStory }
func (s *StoryRecord) Key() string  { return s.Major + "-" + s.Minor }
func (s *StoryRecord) Body() string { return strings.Join(s.Lines, "\n") }
func (*StoryRecord) record()        {}

// Standalone reports whether the story was found outside any epic.
func (s *StoryRecord) Standalone() bool { return s.Epic == "" }
