// internal/tui/app.go
//
// This is the interactive report browser for `planrecon validate -i`.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the reconciliation report plus the current filter and selection
// 2. Update: keys switch filters, open details, or quit
// 3. View: renders the tab bar, the outcome list and the summary
//
// The report is computed before the program starts; the browser never
// touches the filesystem except to read the run history.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/planrecon/internal/logbook"
	"github.com/kingrea/planrecon/internal/reconcile"
)

// filter selects which outcomes the list shows
type filter int

const (
	filterAll      filter = iota // every ledger entry
	filterMissing                // entries that failed lookup
	filterVerified               // entries with an artifact (stubs included)
	filterIgnored                // entries skipped by status
	filterCount
)

func (f filter) label() string {
	switch f {
	case filterMissing:
		return "Missing"
	case filterVerified:
		return "Verified"
	case filterIgnored:
		return "Ignored"
	default:
		return "All"
	}
}

func (f filter) matches(o reconcile.Outcome) bool {
	switch f {
	case filterMissing:
		return o.Missing()
	case filterVerified:
		return o.Found
	case filterIgnored:
		return o.Ignored
	default:
		return true
	}
}

const historyLines = 5

// AppOption customizes the browser.
type AppOption func(*App)

// WithLogbook shows the tail of the run history under the list.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// App is the bubbletea model for the report browser.
type App struct {
	report  *reconcile.Report
	logbook *logbook.Logbook

	filter   filter
	outcomes list.Model
	detail   bool

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// outcomeItem implements list.Item for one ledger entry.
type outcomeItem struct {
	outcome reconcile.Outcome
}

func (i outcomeItem) Title() string {
	o := i.outcome
	switch {
	case o.Ignored:
		return "⚪ " + o.Entry.Key
	case o.Found && o.Stub:
		return "🧩 " + o.Entry.Key
	case o.Found:
		return "✅ " + o.Entry.Key
	default:
		return "❌ " + o.Entry.Key
	}
}

func (i outcomeItem) Description() string {
	o := i.outcome
	status := o.Entry.Status
	if status == "" {
		status = "no status"
	}
	desc := fmt.Sprintf("%s · %s", o.Category, status)
	if o.Found {
		desc += " · " + filepath.Base(o.Path)
	}
	return desc
}

func (i outcomeItem) FilterValue() string { return i.outcome.Entry.Key }

// NewApp creates a browser over report. The initial filter shows missing
// entries when there are any.
func NewApp(report *reconcile.Report, opts ...AppOption) *App {
	if report == nil {
		report = &reconcile.Report{}
	}
	outcomes := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	outcomes.SetShowStatusBar(false)
	outcomes.SetShowHelp(false)

	app := &App{report: report, outcomes: outcomes}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if report.Missing > 0 {
		app.setFilter(filterMissing)
	} else {
		app.setFilter(filterAll)
	}
	return app
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(report *reconcile.Report, opts ...AppOption) error {
	_, err := tea.NewProgram(NewApp(report, opts...), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (a *App) setFilter(f filter) tea.Cmd {
	a.filter = f
	a.detail = false
	var items []list.Item
	for _, o := range a.report.Outcomes {
		if f.matches(o) {
			items = append(items, outcomeItem{outcome: o})
		}
	}
	a.outcomes.Title = fmt.Sprintf("%s · %d", f.label(), len(items))
	a.outcomes.ResetSelected()
	return a.outcomes.SetItems(items)
}

func (a *App) count(f filter) int {
	switch f {
	case filterMissing:
		return a.report.Missing
	case filterVerified:
		return a.report.Verified
	case filterIgnored:
		return a.report.Ignored
	default:
		return a.report.Total()
	}
}

func (a *App) selected() (reconcile.Outcome, bool) {
	item, ok := a.outcomes.SelectedItem().(outcomeItem)
	if !ok {
		return reconcile.Outcome{}, false
	}
	return item.outcome, true
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.outcomes.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		return a, nil

	case tea.KeyMsg:
		// While the list is filtering by text, every key belongs to it.
		if a.outcomes.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "esc":
			if a.detail {
				a.detail = false
				return a, nil
			}
		case "tab", "right", "l":
			return a, a.setFilter((a.filter + 1) % filterCount)
		case "shift+tab", "left", "h":
			return a, a.setFilter((a.filter + filterCount - 1) % filterCount)
		case "1", "2", "3", "4":
			return a, a.setFilter(filter(msg.Runes[0] - '1'))
		case "enter":
			if _, ok := a.selected(); ok {
				a.detail = !a.detail
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.outcomes, cmd = a.outcomes.Update(msg)
	return a, cmd
}

// View renders the current screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ PLANRECON · " + a.source())

	body := a.outcomes.View()
	if a.detail {
		if o, ok := a.selected(); ok {
			body = a.renderDetail(o, width-4)
		}
	}
	sections := []string{header, a.renderTabs(), body, a.renderSummary()}
	if history := a.renderHistory(width - 4); history != "" {
		sections = append(sections, history)
	}
	sections = append(sections, helpStyle.Render("tab/1-4 filter · enter details · / search · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)
)

func (a *App) source() string {
	if a.report.Source == "" {
		return "ledger"
	}
	return filepath.Base(a.report.Source)
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, filterCount)
	for f := filterAll; f < filterCount; f++ {
		label := fmt.Sprintf("%d %s (%d)", int(f)+1, f.label(), a.count(f))
		if f == a.filter {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) renderDetail(o reconcile.Outcome, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key:      %s\n", o.Entry.Key)
	fmt.Fprintf(&b, "Status:   %s\n", o.Entry.Status)
	fmt.Fprintf(&b, "Category: %s\n", o.Category)
	if o.Entry.Line > 0 {
		fmt.Fprintf(&b, "Line:     %d\n", o.Entry.Line)
	}
	switch {
	case o.Ignored:
		b.WriteString("\nIgnored by status; no lookup performed.")
	case o.Found:
		fmt.Fprintf(&b, "\nFound at %s", o.Path)
		if o.Stub {
			b.WriteString(" (placeholder)")
		}
	default:
		b.WriteString("\nSearched:")
		for _, attempt := range o.Attempts {
			fmt.Fprintf(&b, "\n  %s", attempt)
		}
		if len(o.Suggestions) > 0 {
			b.WriteString("\nDid you mean:")
			for _, s := range o.Suggestions {
				fmt.Fprintf(&b, "\n  %s", s)
			}
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width)).
		Render(b.String())
}

func (a *App) renderSummary() string {
	verified := fmt.Sprintf("✅ %d verified", a.report.Verified)
	if a.report.Stubbed > 0 {
		verified += fmt.Sprintf(" (%d stub)", a.report.Stubbed)
	}
	line := fmt.Sprintf("%s · ❌ %d missing · ⚪ %d ignored", verified, a.report.Missing, a.report.Ignored)
	color := lipgloss.Color("#5FD787")
	if !a.report.Passed() {
		color = lipgloss.Color("#FF6B6B")
	}
	return lipgloss.NewStyle().Foreground(color).MarginTop(1).Render(line)
}

func (a *App) renderHistory(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(historyLines)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("HISTORY · %d runs", total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		MarginTop(1).
		Width(max(20, width)).
		Render(fmt.Sprintf("%s\n%s", head, body))
}
