package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrCoverageGaps is returned by CoverageReport.Err when any story is not
// fully covered.
var ErrCoverageGaps = errors.New("audit: acceptance criteria without test coverage")

// CoverageStatus classifies one story's test coverage.
type CoverageStatus string

const (
	CoveragePass    CoverageStatus = "PASS"
	CoverageFail    CoverageStatus = "FAIL"
	CoverageNoTests CoverageStatus = "NO_TESTS"
)

// Icon returns the marker used in rendered reports.
func (s CoverageStatus) Icon() string {
	switch s {
	case CoveragePass:
		return "✅"
	case CoverageFail:
		return "⚠️"
	default:
		return "❌"
	}
}

// CoverageThreshold is the share of criterion keywords a test file must
// mention for the criterion to count as covered.
const CoverageThreshold = 0.3

var (
	storyIDPattern   = regexp.MustCompile(`^(\d+-\d+)`)
	storyTitleLine   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	storyTitlePrefix = regexp.MustCompile(`(?i)^Story\s*`)
	criterionLine    = regexp.MustCompile(`(?m)^-\s*\[[ x]\]\s*(AC\d+:?.+)$`)
	nonAlnum         = regexp.MustCompile(`[^a-zA-Z0-9]`)

	genericWords = map[string]bool{"should": true, "ensure": true, "verify": true, "check": true}
)

// CoverageOptions controls where tests are searched for.
type CoverageOptions struct {
	// TestDirs are searched recursively, relative to the auditor root.
	TestDirs []string
	// TestSuffixes select test files by name, e.g. ".test.ts".
	TestSuffixes []string
	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// StoryCoverage is the coverage result for one story.
type StoryCoverage struct {
	Name     string
	ID       string
	Title    string
	Criteria []string
	Sources  []string
	Tests    []string
	Covered  int
	Gaps     []string
	Status   CoverageStatus
}

// Percent returns covered criteria as a rounded percentage. A story without
// criteria is 100%.
func (s StoryCoverage) Percent() int {
	if len(s.Criteria) == 0 {
		return 100
	}
	return int(float64(s.Covered)/float64(len(s.Criteria))*100 + 0.5)
}

// CoverageReport aggregates every story traced.
type CoverageReport struct {
	Generated time.Time
	Stories   []StoryCoverage
}

// Count returns how many stories have status.
func (r *CoverageReport) Count(status CoverageStatus) int {
	n := 0
	for _, s := range r.Stories {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Err returns ErrCoverageGaps when any story failed or has no tests.
func (r *CoverageReport) Err() error {
	n := len(r.Stories) - r.Count(CoveragePass)
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d stories", ErrCoverageGaps, n)
}

// Coverage traces each story in dir to the tests of the source files it
// links, then scores every acceptance criterion against those tests by
// keyword overlap. Files whose name contains "epic-" are not stories.
func (a *Auditor) Coverage(dir string, opts CoverageOptions) (*CoverageReport, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("audit: list %s: %w", dir, err)
	}
	tests, err := a.testFiles(opts)
	if err != nil {
		return nil, err
	}
	contents := map[string]string{}
	read := func(rel string) string {
		if c, ok := contents[rel]; ok {
			return c
		}
		data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(rel)))
		if err != nil {
			a.log.Warn("test file unreadable", zap.String("path", rel), zap.Error(err))
		}
		contents[rel] = string(data)
		return contents[rel]
	}

	report := &CoverageReport{Generated: opts.Now().UTC()}
	for _, path := range matches {
		name := filepath.Base(path)
		if strings.Contains(name, "epic-") {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read %s: %w", path, err)
		}
		story := a.parseStory(name, string(data))
		story.Tests = linkTests(story, tests, read)
		scoreStory(&story, read)
		a.log.Debug("story traced",
			zap.String("story", story.ID),
			zap.Int("criteria", len(story.Criteria)),
			zap.Int("tests", len(story.Tests)),
			zap.String("status", string(story.Status)))
		report.Stories = append(report.Stories, story)
	}
	return report, nil
}

func (a *Auditor) parseStory(name, content string) StoryCoverage {
	base := strings.TrimSuffix(name, ".md")
	story := StoryCoverage{Name: name, ID: base, Title: base}
	if m := storyIDPattern.FindStringSubmatch(base); m != nil {
		story.ID = m[1]
	}
	if m := storyTitleLine.FindStringSubmatch(content); m != nil {
		story.Title = strings.TrimSpace(storyTitlePrefix.ReplaceAllString(m[1], ""))
	}
	for _, m := range criterionLine.FindAllStringSubmatch(content, -1) {
		story.Criteria = append(story.Criteria, strings.TrimSpace(m[1]))
	}
	seen := map[string]bool{}
	for _, pattern := range a.links {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			if strings.Contains(m[1], "test") {
				continue
			}
			source := filepath.Base(filepath.FromSlash(m[1]))
			if !seen[source] {
				seen[source] = true
				story.Sources = append(story.Sources, source)
			}
		}
	}
	return story
}

// testFiles lists every file under the test dirs with a test suffix, as
// slash-separated paths relative to the root.
func (a *Auditor) testFiles(opts CoverageOptions) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, dir := range opts.TestDirs {
		start := filepath.Join(a.root, filepath.FromSlash(dir))
		err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == start {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || !hasSuffix(d.Name(), opts.TestSuffixes) {
				return nil
			}
			rel, err := filepath.Rel(a.root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("audit: list tests in %s: %w", dir, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// linkTests finds the tests named after the story's source files. Without
// any, it falls back to tests mentioning one of the first two long words
// of the story title.
func linkTests(story StoryCoverage, tests []string, read func(string) string) []string {
	linked := map[string]bool{}
	for _, source := range story.Sources {
		stem := strings.TrimSuffix(source, filepath.Ext(source))
		for _, test := range tests {
			if strings.Contains(pathBase(test), stem) {
				linked[test] = true
			}
		}
	}
	if len(linked) == 0 {
		var keywords []string
		for _, word := range strings.Fields(story.Title) {
			if len(word) > 5 {
				keywords = append(keywords, word)
			}
			if len(keywords) == 2 {
				break
			}
		}
		for _, test := range tests {
			for _, kw := range keywords {
				if strings.Contains(read(test), kw) {
					linked[test] = true
					break
				}
			}
		}
	}
	out := make([]string, 0, len(linked))
	for test := range linked {
		out = append(out, test)
	}
	sort.Strings(out)
	return out
}

func scoreStory(story *StoryCoverage, read func(string) string) {
	for _, criterion := range story.Criteria {
		if len(story.Tests) > 0 && criterionCovered(criterion, story.Tests, read) {
			story.Covered++
			continue
		}
		story.Gaps = append(story.Gaps, criterion)
	}
	switch {
	case len(story.Criteria) == 0:
		story.Status = CoveragePass
	case len(story.Tests) == 0:
		story.Status = CoverageNoTests
	case story.Covered == len(story.Criteria):
		story.Status = CoveragePass
	default:
		story.Status = CoverageFail
	}
}

// criterionCovered reports whether any test mentions enough of the
// criterion's significant words. A criterion with none is covered.
func criterionCovered(criterion string, tests []string, read func(string) string) bool {
	var keywords []string
	for _, word := range strings.Split(criterion, " ") {
		word = nonAlnum.ReplaceAllString(word, "")
		if len(word) > 4 && !genericWords[strings.ToLower(word)] {
			keywords = append(keywords, strings.ToLower(word))
		}
	}
	if len(keywords) == 0 {
		return true
	}
	for _, test := range tests {
		content := strings.ToLower(read(test))
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				hits++
			}
		}
		if float64(hits)/float64(len(keywords)) >= CoverageThreshold {
			return true
		}
	}
	return false
}

func hasSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func pathBase(slashPath string) string {
	if i := strings.LastIndex(slashPath, "/"); i >= 0 {
		return slashPath[i+1:]
	}
	return slashPath
}
