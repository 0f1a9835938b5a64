package reconcile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ErrMissingArtifacts is returned by Report.Err when any entry is missing.
var ErrMissingArtifacts = errors.New("reconcile: missing artifacts detected")

// Report aggregates resolver outcomes. Stubbed counts verified entries whose
// artifact is a placeholder.
type Report struct {
	Source   string
	Outcomes []Outcome
	Verified int
	Missing  int
	Ignored  int
	Stubbed  int
}

// Add tallies one outcome.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch {
	case o.Ignored:
		r.Ignored++
	case o.Found:
		r.Verified++
		if o.Stub {
			r.Stubbed++
		}
	default:
		r.Missing++
	}
}

// Total returns the number of outcomes.
func (r *Report) Total() int { return len(r.Outcomes) }

// MissingOutcomes returns the entries that failed lookup, in ledger order.
func (r *Report) MissingOutcomes() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Missing() {
			out = append(out, o)
		}
	}
	return out
}

// Passed reports whether every tracked entry resolved.
func (r *Report) Passed() bool { return r.Missing == 0 }

// Err returns ErrMissingArtifacts when the report failed.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d entries", ErrMissingArtifacts, r.Missing, r.Total())
}

type reportStyles struct {
	missing lipgloss.Style
	hint    lipgloss.Style
	heading lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	renderer := lipgloss.NewRenderer(w)
	return reportStyles{
		missing: renderer.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		hint:    renderer.NewStyle().Foreground(lipgloss.Color("#888888")),
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		pass:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD787")),
		fail:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// Render prints each missing entry followed by the summary counts and the
// pass/fail banner. Colors are only emitted when w is a terminal.
func (r *Report) Render(w io.Writer) error {
	styles := newReportStyles(w)
	var b strings.Builder
	source := r.Source
	if source == "" {
		source = "ledger"
	}
	fmt.Fprintf(&b, "📋 Checked %d entries in %s\n", r.Total(), source)
	for _, o := range r.MissingOutcomes() {
		b.WriteString(styles.missing.Render(fmt.Sprintf("❌ MISSING [%s]: %s (%s)", o.Category, o.Entry.Key, o.Entry.Status)))
		b.WriteString("\n")
		if len(o.Attempts) > 0 {
			searched := make([]string, len(o.Attempts))
			for i, attempt := range o.Attempts {
				searched[i] = attempt.String()
			}
			b.WriteString(styles.hint.Render("   expected at: " + strings.Join(searched, ", ")))
			b.WriteString("\n")
		}
		if len(o.Suggestions) > 0 {
			b.WriteString(styles.hint.Render("   did you mean: " + strings.Join(o.Suggestions, ", ")))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.heading.Render("📊 Validation Summary:"))
	b.WriteString("\n")
	if r.Stubbed > 0 {
		fmt.Fprintf(&b, "✅ Verified: %d (%d stub)\n", r.Verified, r.Stubbed)
	} else {
		fmt.Fprintf(&b, "✅ Verified: %d\n", r.Verified)
	}
	fmt.Fprintf(&b, "❌ Missing: %d\n", r.Missing)
	fmt.Fprintf(&b, "⚪ Ignored: %d\n", r.Ignored)
	b.WriteString("\n")
	if r.Passed() {
		b.WriteString(styles.pass.Render("✨ INTEGRITY CHECK PASSED: All tracked items exist."))
	} else {
		b.WriteString(styles.fail.Render("🚨 INTEGRITY CHECK FAILED: Missing artifacts detected."))
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
