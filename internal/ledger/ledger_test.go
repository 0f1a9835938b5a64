package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const sprintStatus = `# generated: 2026-01-12
project: ticketing
story_location: _bmad-output/stories

development_status:
  # === Phase 1 ===
  epic-1: done
  epic-01/1-1-initialize-project: done   # scaffolded
  1-2-login-screen: review
  epic-1-retrospective: done
  ==== Phase 2 ====: ignored
  epic-20: in-progress
  21-1-create-table: backlog
	epic-21: deferred
notes: free text without a status
  epic-20: done # duplicate wins
`

func TestParseCapturesSection(t *testing.T) {
	ledger, err := Parse(strings.NewReader(sprintStatus), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Entry{
		{Key: "epic-1", Status: "done"},
		{Key: "epic-01/1-1-initialize-project", Status: "done"},
		{Key: "1-2-login-screen", Status: "review"},
		{Key: "epic-1-retrospective", Status: "done"},
		{Key: "epic-20", Status: "done"},
		{Key: "21-1-create-table", Status: "backlog"},
		{Key: "epic-21", Status: "deferred"},
		{Key: "notes", Status: "free text without a status"},
	}
	if diff := cmp.Diff(want, ledger.Entries, cmpopts.IgnoreFields(Entry{}, "Line")); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if status, ok := ledger.Status("epic-20"); !ok || status != "done" {
		t.Fatalf("duplicate key should take the later status, got %q", status)
	}
	if ledger.Entries[0].Line != 7 {
		t.Fatalf("epic-1 line = %d, want 7", ledger.Entries[0].Line)
	}
}

func TestParseIgnoresKeysBeforeSection(t *testing.T) {
	ledger, err := Parse(strings.NewReader(sprintStatus), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ledger.Status("project"); ok {
		t.Fatal("keys before the section marker must not be captured")
	}
	if _, ok := ledger.Status("story_location"); ok {
		t.Fatal("keys before the section marker must not be captured")
	}
}

func TestParseCustomMarkers(t *testing.T) {
	doc := "status_map:\n  a: done ; trailing\n  ; comment line\n  b: todo\n"
	ledger, err := Parse(strings.NewReader(doc), Options{SectionMarker: "status_map:", CommentMarker: ";"})
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{Key: "a", Status: "done"}, {Key: "b", Status: "todo"}}
	if diff := cmp.Diff(want, ledger.Entries, cmpopts.IgnoreFields(Entry{}, "Line")); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyValueIsKept(t *testing.T) {
	ledger, err := Parse(strings.NewReader("development_status:\n  epic-01:\n    1-1-x: done\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	status, ok := ledger.Status("epic-01")
	if !ok || status != "" {
		t.Fatalf("nested header should be captured with empty status, got %q ok=%v", status, ok)
	}
	if ledger.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", ledger.Len())
	}
}

func TestParseRepeatedSectionMarker(t *testing.T) {
	doc := "development_status:\n  epic-1: done\ndevelopment_status:\n  epic-2: done\n"
	ledger, err := Parse(strings.NewReader(doc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{Key: "epic-1", Status: "done", Line: 2}, {Key: "epic-2", Status: "done", Line: 4}}
	if diff := cmp.Diff(want, ledger.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if _, ok := ledger.Status("development_status"); ok {
		t.Fatal("section marker must not become an entry")
	}
}

func TestParseLongLines(t *testing.T) {
	doc := "development_status:\n  epic-1: done # " + strings.Repeat("x", 2<<20) + "\n  epic-2: review"
	ledger, err := Parse(strings.NewReader(doc), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if status, _ := ledger.Status("epic-1"); status != "done" {
		t.Fatalf("epic-1 status = %q", status)
	}
	if status, _ := ledger.Status("epic-2"); status != "review" {
		t.Fatalf("final line without newline lost, got %q", status)
	}
}

func TestParseWithoutSection(t *testing.T) {
	_, err := Parse(strings.NewReader("project: x\n"), Options{})
	if !errors.Is(err, ErrNoSection) {
		t.Fatalf("expected ErrNoSection, got %v", err)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "sprint-status.yaml"), Options{})
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestParseFileSetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprint-status.yaml")
	if err := os.WriteFile(path, []byte(sprintStatus), 0o644); err != nil {
		t.Fatal(err)
	}
	ledger, err := ParseFile(path, Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if ledger.Source != path {
		t.Fatalf("source = %q", ledger.Source)
	}
	if ledger.Len() != 8 {
		t.Fatalf("expected 8 entries, got %d", ledger.Len())
	}
}
