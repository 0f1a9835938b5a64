package audit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReferences(t *testing.T) {
	a, err := New(t.TempDir(), []string{"src/"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	content := "Create `src/components/Pricing.tsx` and `src/lib/api.ts`.\n" +
		"Target: src/pages/Help.tsx\n" +
		"Mentions `src/components/Pricing.tsx` again and `docs/readme.md`.\n" +
		"`src/noext` is not a file reference.\n"
	want := []string{"src/components/Pricing.tsx", "src/lib/api.ts", "src/pages/Help.tsx"}
	if diff := cmp.Diff(want, a.References(content)); diff != "" {
		t.Fatalf("References (-want +got):\n%s", diff)
	}
}

func TestNewRequiresPrefix(t *testing.T) {
	if _, err := New(t.TempDir(), nil, nil); err == nil {
		t.Fatal("expected error without prefixes")
	}
}

func TestAuditDir(t *testing.T) {
	root := t.TempDir()
	stories := filepath.Join(root, "stories")
	write(t, filepath.Join(root, "src", "pages", "Help.tsx"), "x")
	write(t, filepath.Join(stories, "13-6-help.md"), "Target: src/pages/Help.tsx\n")
	write(t, filepath.Join(stories, "6-6-pricing.md"), "Uses `src/components/Pricing.tsx`.\n")
	write(t, filepath.Join(stories, "production-setup.md"), "# Story: Production Setup\n")
	write(t, filepath.Join(stories, "notes.txt"), "`src/ignored.ts`")

	a, err := New(root, []string{"src/"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	report, err := a.AuditDir(stories)
	if err != nil {
		t.Fatalf("AuditDir: %v", err)
	}
	if len(report.Stories) != 3 {
		t.Fatalf("expected 3 markdown stories, got %d", len(report.Stories))
	}
	missing := report.WithMissing()
	if len(missing) != 1 || missing[0].Name != "6-6-pricing.md" {
		t.Fatalf("unexpected missing: %+v", missing)
	}
	if diff := cmp.Diff([]string{"production-setup.md"}, report.Unreferenced()); diff != "" {
		t.Fatalf("unreferenced (-want +got):\n%s", diff)
	}
	if !errors.Is(report.Err(), ErrMissingReferences) {
		t.Fatalf("expected ErrMissingReferences, got %v", report.Err())
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"❌ 6-6-pricing.md", "- src/components/Pricing.tsx", "NO DETECTED CODE REFERENCES (1)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("render missing %q:\n%s", want, buf.String())
		}
	}
}

func TestAuditDirMissingDirIsEmpty(t *testing.T) {
	a, _ := New(t.TempDir(), []string{"src/"}, nil)
	report, err := a.AuditDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(report.Stories) != 0 || report.Err() != nil {
		t.Fatalf("expected empty passing report, got %+v, %v", report, err)
	}
}

func TestRenderTruncatesUnreferenced(t *testing.T) {
	report := &Report{}
	for i := 0; i < 12; i++ {
		report.Stories = append(report.Stories, StoryAudit{Name: fmt.Sprintf("s%02d.md", i)})
	}
	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "- s09.md") || strings.Contains(out, "- s10.md") || !strings.Contains(out, "...and 2 more") {
		t.Fatalf("unexpected truncation:\n%s", out)
	}
	if !strings.Contains(out, "(None - All referenced files exist)") {
		t.Fatalf("expected none line:\n%s", out)
	}
}
