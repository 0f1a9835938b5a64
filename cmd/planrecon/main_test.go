package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricingBackup = "## Epic 6: Pricing\n### Story 6.6: Display What's Included Section\nBody text."

const sprintStatus = `# generated by sprint planning
generated: 2026-01-12
development_status:
  epic-6: done
  6-6-display-whats-included-section: done
  epic-6-retrospective: optional
  epic-20: in-progress  # backend
  20-1-supabase-auth: backlog
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "_bmad-output", "planning-artifacts", "epics.md.bak"), pricingBackup)
	writeFile(t, filepath.Join(dir, "_bmad-output", "sprint-status.yaml"), sprintStatus)
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInitScaffoldsProject(t *testing.T) {
	dir := t.TempDir()
	code, out, _ := run(t, "-C", dir, "init")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Initialized")
	assert.FileExists(t, filepath.Join(dir, ".planrecon", "config.yaml"))
	assert.DirExists(t, filepath.Join(dir, ".planrecon", "logs"))
}

func TestRestoreWritesPricingArtifacts(t *testing.T) {
	dir := newProject(t)
	code, out, _ := run(t, "-C", dir, "restore")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✅ Restored Epic 6: epic-6.md")
	assert.Contains(t, out, "⚠️ File not found")
	assert.Contains(t, out, "🏁 Restoration Complete.")

	epic, err := os.ReadFile(filepath.Join(dir, "_bmad-output", "planning-artifacts", "epics", "epic-6.md"))
	require.NoError(t, err)
	assert.Equal(t, pricingBackup, string(epic))

	story, err := os.ReadFile(filepath.Join(dir, "_bmad-output", "stories", "6-6-display-whats-included-section.md"))
	require.NoError(t, err)
	assert.Equal(t, "### Story 6.6: Display What's Included Section\nBody text.", string(story))
}

func TestRestoreMissingRequiredBackupIsFatal(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := run(t, "-C", dir, "restore")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "🚨 document: source document not found")
}

func TestValidateFailsThenPassesAfterStub(t *testing.T) {
	dir := newProject(t)
	code, _, _ := run(t, "-C", dir, "restore")
	require.Equal(t, ExitSuccess, code)

	code, out, stderr := run(t, "-C", dir, "validate")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "❌ MISSING [EPIC]: epic-20 (in-progress)")
	assert.Contains(t, out, "✅ Verified: 2")
	assert.Contains(t, out, "⚪ Ignored: 2")
	assert.Contains(t, out, "INTEGRITY CHECK FAILED")
	assert.NotContains(t, stderr, "🚨", "failed reconciliation is not a fatal error")

	writeFile(t, filepath.Join(dir, ".planrecon", "stubs.yaml"), `
epics:
  - id: "20"
    title: Backend Integration - Supabase
`)
	code, out, _ = run(t, "-C", dir, "run")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "✅ Created Stub")
	assert.Contains(t, out, "✅ Verified: 3 (1 stub)")
	assert.Contains(t, out, "INTEGRITY CHECK PASSED")

	history, err := os.ReadFile(filepath.Join(dir, ".planrecon", "logs", "history.log"))
	require.NoError(t, err)
	assert.Contains(t, string(history), "validate failed")
	assert.Contains(t, string(history), "validate ok")
}

func TestRunSkipsEmptyStubManifest(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, ".planrecon", "stubs.yaml"), "source: epics.md.bak\n")
	code, out, _ := run(t, "-C", dir, "run")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "lists nothing, skipping")
	assert.NotContains(t, out, "Stub Generation Complete")
	assert.Contains(t, out, "❌ MISSING [EPIC]: epic-20 (in-progress)")
}

func TestValidateMissingLedgerIsFatal(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := run(t, "-C", dir, "validate", "--ledger", "nope.yaml")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "ledger document not found")
}

func TestStubRequiresManifest(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := run(t, "-C", dir, "stub")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "stub: manifest not found")
}

func TestAuditStrict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "_bmad-output", "stories", "6-6-pricing.md"), "Target: src/pages/Pricing.tsx\n")

	code, out, _ := run(t, "-C", dir, "audit")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "❌ 6-6-pricing.md")

	code, _, _ = run(t, "-C", dir, "audit", "--strict")
	assert.Equal(t, ExitFailure, code)

	writeFile(t, filepath.Join(dir, "src", "pages", "Pricing.tsx"), "export {}")
	code, out, _ = run(t, "-C", dir, "audit", "--strict")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "(None - All referenced files exist)")
}

func TestAuditCoverageWritesReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "_bmad-output", "stories", "6-6-pricing.md"), `# Story 6.6: Display Pricing
- [x] AC1: Pricing table lists every plan
- [ ] AC2: Annual toggle applies the discount
See [Pricing](../../src/pages/Pricing.tsx).
`)
	writeFile(t, filepath.Join(dir, "tests", "Pricing.test.ts"), "it('lists every plan in the pricing table')")

	code, out, _ := run(t, "-C", dir, "audit", "--coverage")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "⚠️ 6-6: 6.6: Display Pricing (1/2 criteria, 1 tests)")

	report, err := os.ReadFile(filepath.Join(dir, "_bmad-output", "traceability", "global-traceability-report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "| **6-6** | ⚠️ FAIL | 50% (1/2) | 1 |")
	assert.Contains(t, string(report), "- [ ] AC2: Annual toggle applies the discount")

	code, _, _ = run(t, "-C", dir, "audit", "--coverage", "--strict", "--report", "out/trace.md")
	assert.Equal(t, ExitFailure, code)
	assert.FileExists(t, filepath.Join(dir, "out", "trace.md"))

	code, _, _ = run(t, "-C", dir, "audit", "--report", "out/trace.md")
	assert.Equal(t, ExitInvalidUsage, code)
}

func TestUsageErrorsExitTwo(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{
		{"-C", dir, "validate", "extra"},
		{"-C", dir, "audit", "--bogus"},
		{"-C", dir, "nonsense"},
	} {
		code, _, stderr := run(t, args...)
		assert.Equal(t, ExitInvalidUsage, code, "args %v", args)
		assert.Contains(t, stderr, "planrecon --help")
	}
}
