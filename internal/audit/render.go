package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Render prints stories with missing files followed by up to
// MaxListedUnreferenced stories without references.
func (r *Report) Render(w io.Writer) error {
	renderer := lipgloss.NewRenderer(w)
	heading := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	bad := renderer.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dim := renderer.NewStyle().Foreground(lipgloss.Color("#888888"))

	var b strings.Builder
	fmt.Fprintf(&b, "📚 Analyzed %d stories.\n\n", len(r.Stories))
	b.WriteString(heading.Render("🚩 STORIES WITH MISSING FILES:"))
	b.WriteString("\n")
	missing := r.WithMissing()
	if len(missing) == 0 {
		b.WriteString(dim.Render("  (None - All referenced files exist)"))
		b.WriteString("\n")
	}
	for _, story := range missing {
		b.WriteString(bad.Render("  ❌ " + story.Name))
		b.WriteString("\n")
		for _, ref := range story.Missing {
			fmt.Fprintf(&b, "     - %s\n", ref)
		}
	}

	unreferenced := r.Unreferenced()
	b.WriteString("\n")
	b.WriteString(heading.Render(fmt.Sprintf("⚠️ STORIES WITH NO DETECTED CODE REFERENCES (%d):", len(unreferenced))))
	b.WriteString("\n")
	for i, name := range unreferenced {
		if i == MaxListedUnreferenced {
			b.WriteString(dim.Render(fmt.Sprintf("  ...and %d more", len(unreferenced)-MaxListedUnreferenced)))
			b.WriteString("\n")
			break
		}
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// gapPreviewLen is how many runes of the first gap the summary table shows.
const gapPreviewLen = 50

// Markdown returns the global traceability report document.
func (r *CoverageReport) Markdown() string {
	var b strings.Builder
	b.WriteString("# 🌍 Global Traceability Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", r.Generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Total Stories:** %d\n", len(r.Stories))
	fmt.Fprintf(&b, "**Passing:** %d\n", r.Count(CoveragePass))
	fmt.Fprintf(&b, "**Failing:** %d\n", r.Count(CoverageFail))
	fmt.Fprintf(&b, "**No Tests:** %d\n\n", r.Count(CoverageNoTests))

	b.WriteString("| Story | Status | Coverage | Tests Found | Critical Gaps |\n")
	b.WriteString("|-------|--------|----------|-------------|---------------|\n")
	for _, s := range r.Stories {
		gap := "None"
		if len(s.Gaps) > 0 {
			gap = truncateRunes(s.Gaps[0], gapPreviewLen) + "..."
		}
		fmt.Fprintf(&b, "| **%s** | %s %s | %d%% (%d/%d) | %d | %s |\n",
			s.ID, s.Status.Icon(), s.Status, s.Percent(), s.Covered, len(s.Criteria), len(s.Tests), gap)
	}

	b.WriteString("\n\n## 🔍 Detailed Gaps\n\n")
	for _, s := range r.Stories {
		if s.Status == CoveragePass || len(s.Gaps) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s: %s\n", s.ID, s.Title)
		b.WriteString("**Tests Found:**\n")
		for _, test := range s.Tests {
			fmt.Fprintf(&b, "- `%s`\n", test)
		}
		if len(s.Tests) == 0 {
			b.WriteString("> No linked tests found for modified files.\n")
		}
		b.WriteString("\n**Missing Coverage:**\n")
		for _, gap := range s.Gaps {
			fmt.Fprintf(&b, "- [ ] %s\n", gap)
		}
		b.WriteString("\n---\n")
	}
	return b.String()
}

// WriteMarkdown writes Markdown to path, creating parent directories.
func (r *CoverageReport) WriteMarkdown(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("audit: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
		return fmt.Errorf("audit: write %s: %w", path, err)
	}
	return nil
}

// Render prints one line per story and the status totals.
func (r *CoverageReport) Render(w io.Writer) error {
	renderer := lipgloss.NewRenderer(w)
	heading := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	styles := map[CoverageStatus]lipgloss.Style{
		CoveragePass:    renderer.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		CoverageFail:    renderer.NewStyle().Foreground(lipgloss.Color("#E3B341")),
		CoverageNoTests: renderer.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "found %d stories.\n", len(r.Stories))
	for _, s := range r.Stories {
		line := fmt.Sprintf("  %s %s: %s (%d/%d criteria, %d tests)",
			s.Status.Icon(), s.ID, s.Title, s.Covered, len(s.Criteria), len(s.Tests))
		b.WriteString(styles[s.Status].Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(heading.Render(fmt.Sprintf("Passing: %d  Failing: %d  No Tests: %d",
		r.Count(CoveragePass), r.Count(CoverageFail), r.Count(CoverageNoTests))))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
