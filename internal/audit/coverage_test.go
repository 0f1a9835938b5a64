package audit

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const helpStory = `# Story 13.6: Create Help and Support Screen

## Acceptance Criteria
- [x] AC1: Support screen shows contact email
- [ ] AC2: Should verify the FAQ accordion expands
- [ ] AC3: Check it

## Files Modified
- [HelpScreen](src/screens/HelpScreen.tsx)
- [HelpScreen test](src/screens/HelpScreen.test.tsx)
`

func coverageFixture(t *testing.T) (string, *Auditor) {
	t.Helper()
	root := t.TempDir()
	stories := filepath.Join(root, "stories")
	write(t, filepath.Join(stories, "13-6-create-help-and-support-screen.md"), helpStory)
	write(t, filepath.Join(stories, "6-6-pricing.md"), "# Story 6.6: Pricing\n- [ ] AC1: Discount banner appears\n")
	write(t, filepath.Join(stories, "21-1-refactor.md"), "# Refactor storage\nNo criteria here.\n")
	write(t, filepath.Join(stories, "epic-6.md"), "# Epic 6\n- [ ] AC1: never traced\n")
	write(t, filepath.Join(stories, "20-5-billing.md"), "# Story 20.5: Billing Invoices\n- [ ] AC1: Invoice totals include taxation\n")
	write(t, filepath.Join(root, "src", "screens", "HelpScreen.test.tsx"),
		"describe('HelpScreen', () => { it('shows contact email', () => {}) })")
	write(t, filepath.Join(root, "tests", "billing.spec.ts"), "// Billing Invoices\nexpect(totals).toBe(1)")
	write(t, filepath.Join(root, "tests", "notes.md"), "Discount banner appears")

	a, err := New(root, []string{"src/"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return stories, a
}

func coverageOptions() CoverageOptions {
	return CoverageOptions{
		TestDirs:     []string{"src", "tests", "missing"},
		TestSuffixes: []string{".test.ts", ".spec.ts", ".test.tsx"},
		Now:          func() time.Time { return time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC) },
	}
}

func TestCoverageScoresStories(t *testing.T) {
	stories, a := coverageFixture(t)
	report, err := a.Coverage(stories, coverageOptions())
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	got := map[string]StoryCoverage{}
	for _, s := range report.Stories {
		got[s.ID] = s
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 stories without the epic file, got %v", report.Stories)
	}

	help := got["13-6"]
	if help.Title != "13.6: Create Help and Support Screen" {
		t.Fatalf("title = %q", help.Title)
	}
	if diff := cmp.Diff([]string{"HelpScreen.tsx"}, help.Sources); diff != "" {
		t.Fatalf("sources (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"src/screens/HelpScreen.test.tsx"}, help.Tests); diff != "" {
		t.Fatalf("tests (-want +got):\n%s", diff)
	}
	// AC3 has no significant words and counts as covered.
	if help.Status != CoverageFail || help.Covered != 2 || help.Percent() != 67 {
		t.Fatalf("unexpected help coverage %+v", help)
	}
	if diff := cmp.Diff([]string{"AC2: Should verify the FAQ accordion expands"}, help.Gaps); diff != "" {
		t.Fatalf("gaps (-want +got):\n%s", diff)
	}

	if s := got["6-6"]; s.Status != CoverageNoTests || len(s.Gaps) != 1 {
		t.Fatalf("pricing should have no tests: %+v", s)
	}
	if s := got["21-1"]; s.Status != CoveragePass || s.Percent() != 100 {
		t.Fatalf("stories without criteria pass: %+v", s)
	}
	billing := got["20-5"]
	if diff := cmp.Diff([]string{"tests/billing.spec.ts"}, billing.Tests); diff != "" {
		t.Fatalf("title keyword fallback (-want +got):\n%s", diff)
	}
	if billing.Status != CoveragePass {
		t.Fatalf("billing should pass: %+v", billing)
	}

	if !errors.Is(report.Err(), ErrCoverageGaps) {
		t.Fatalf("expected ErrCoverageGaps, got %v", report.Err())
	}
}

func TestCoverageMarkdown(t *testing.T) {
	stories, a := coverageFixture(t)
	report, err := a.Coverage(stories, coverageOptions())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "traceability", "global-traceability-report.md")
	if err := report.WriteMarkdown(path); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	md := report.Markdown()
	for _, want := range []string{
		"**Generated:** 2026-01-12T09:00:00Z",
		"**Total Stories:** 4\n**Passing:** 2\n**Failing:** 1\n**No Tests:** 1",
		"| **13-6** | ⚠️ FAIL | 67% (2/3) | 1 | AC2: Should verify the FAQ accordion expands... |",
		"| **6-6** | ❌ NO_TESTS | 0% (0/1) | 0 | AC1: Discount banner appears... |",
		"| **21-1** | ✅ PASS | 100% (0/0) | 0 | None |",
		"### 6-6: 6.6: Pricing\n**Tests Found:**\n> No linked tests found for modified files.",
		"- `src/screens/HelpScreen.test.tsx`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "### 21-1") {
		t.Error("passing stories have no gap section")
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Passing: 2  Failing: 1  No Tests: 1") {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes(strings.Repeat("é", 60), 50); len([]rune(got)) != 50 {
		t.Fatalf("expected 50 runes, got %d", len([]rune(got)))
	}
	if got := truncateRunes("short", 50); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestCoverageEmptyDirPasses(t *testing.T) {
	a, _ := New(t.TempDir(), []string{"src/"}, nil)
	report, err := a.Coverage(filepath.Join(t.TempDir(), "none"), coverageOptions())
	if err != nil || len(report.Stories) != 0 || report.Err() != nil {
		t.Fatalf("expected empty passing report, got %+v, %v", report, err)
	}
}
