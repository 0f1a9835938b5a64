package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/audit"
	"github.com/kingrea/planrecon/internal/config"
	"github.com/kingrea/planrecon/internal/document"
	"github.com/kingrea/planrecon/internal/ledger"
	"github.com/kingrea/planrecon/internal/reconcile"
	"github.com/kingrea/planrecon/internal/restore"
	"github.com/kingrea/planrecon/internal/stub"
	"github.com/kingrea/planrecon/internal/tui"
)

func newInitCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .planrecon/ with a default config",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitProjectDir(app.cfg.ProjectDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Initialized %s\n", app.cfg.ProjectConfigPath())
			return nil
		},
	}
}

func newRestoreCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [backup...]",
		Short: "Rebuild epic and story files from backup documents",
		Long: `Scans each backup for "## Epic N: Title" and "### Story N.M: Title" headers
and writes one file per record. Without arguments the configured backups are
used; backups given on the command line are all required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(app, cmd.OutOrStdout(), args)
		},
	}
}

func newValidateCmd(app *cliApp) *cobra.Command {
	var (
		interactive   bool
		ledgerPath    string
		noSuggestions bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every ledger entry against the artifact tree",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(app, cmd.OutOrStdout(), validateOptions{
				interactive: interactive,
				ledgerPath:  ledgerPath,
				suggest:     !noSuggestions,
			})
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse the report in a terminal UI")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Ledger document (defaults to paths.ledger)")
	cmd.Flags().BoolVar(&noSuggestions, "no-suggestions", false, "Skip nearest-name hints for missing entries")
	return cmd
}

func newStubCmd(app *cliApp) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Write placeholder artifacts listed in the stub manifest",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStub(app, cmd.OutOrStdout(), manifest, true)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "Stub manifest (defaults to stubs.manifest)")
	return cmd
}

func newAuditCmd(app *cliApp) *cobra.Command {
	var (
		strict   bool
		coverage bool
		report   string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check that source files referenced by stories exist",
		Long: `Without flags, checks that every source file a story references exists.
With --coverage, traces each story's acceptance criteria to the tests of the
source files it links and writes a markdown traceability report.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if coverage {
				return runCoverage(app, cmd.OutOrStdout(), report, strict)
			}
			if report != "" {
				return &usageError{err: errors.New("--report requires --coverage")}
			}
			return runAudit(app, cmd.OutOrStdout(), strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the audit finds gaps")
	cmd.Flags().BoolVar(&coverage, "coverage", false, "Score acceptance-criteria test coverage per story")
	cmd.Flags().StringVar(&report, "report", "", "Coverage report path (defaults to audit.coverage_report)")
	return cmd
}

func newRunCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Restore, apply the stub manifest if present, then validate",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := runRestore(app, out, nil); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := runStub(app, out, "", false); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return runValidate(app, out, validateOptions{suggest: true})
		},
	}
}

func runRestore(app *cliApp, out io.Writer, paths []string) error {
	var sources []restore.Source
	if len(paths) > 0 {
		for _, p := range paths {
			sources = append(sources, restore.Source{Path: app.cfg.Resolve(p)})
		}
	} else {
		for _, b := range app.cfg.Backups() {
			sources = append(sources, restore.Source{Path: b.Path, Optional: b.Optional})
		}
	}
	r := restore.New(app.store(), restore.WithOutput(out), restore.WithLogger(app.log.Logger))
	results, err := r.RestoreAll(sources)
	var epics, stories, skipped int
	for _, res := range results {
		epics += res.Count(document.KindEpic)
		stories += res.Count(document.KindStory)
		if res.Skipped {
			skipped++
		}
	}
	app.book.Result("restore", err, fmt.Sprintf("%d backups, %d skipped, %d epics, %d stories", len(results), skipped, epics, stories))
	return err
}

type validateOptions struct {
	interactive bool
	ledgerPath  string
	suggest     bool
}

func runValidate(app *cliApp, out io.Writer, opts validateOptions) error {
	path := app.cfg.LedgerPath()
	if opts.ledgerPath != "" {
		path = app.cfg.Resolve(opts.ledgerPath)
	}
	l, err := ledger.ParseFile(path, app.cfg.LedgerOptions())
	if err != nil {
		app.book.Result("validate", err, path)
		return err
	}
	resolver := reconcile.NewResolver(app.cfg.Layout(),
		reconcile.WithIgnoreStatuses(app.cfg.IgnoreStatuses()...),
		reconcile.WithSuggestions(opts.suggest),
		reconcile.WithLogger(app.log.Logger))
	report := resolver.ResolveAll(l)
	app.log.Info("ledger reconciled",
		zap.String("ledger", path),
		zap.Int("verified", report.Verified),
		zap.Int("missing", report.Missing),
		zap.Int("ignored", report.Ignored),
		zap.Int("stubbed", report.Stubbed))
	app.book.Result("validate", report.Err(),
		fmt.Sprintf("%d verified, %d missing, %d ignored", report.Verified, report.Missing, report.Ignored))

	if opts.interactive {
		if err := tui.Run(report, tui.WithLogbook(app.book)); err != nil {
			return err
		}
	} else if err := report.Render(out); err != nil {
		return err
	}
	return report.Err()
}

// runStub applies the manifest. When required is false a missing manifest
// is skipped.
func runStub(app *cliApp, out io.Writer, manifestPath string, required bool) error {
	path := app.cfg.StubManifestPath()
	if manifestPath != "" {
		path = app.cfg.Resolve(manifestPath)
	}
	m, err := stub.LoadManifest(path)
	if err != nil {
		if errors.Is(err, stub.ErrNoManifest) && !required {
			app.log.Info("no stub manifest, skipping", zap.String("path", path))
			return nil
		}
		return err
	}
	if m.Empty() {
		fmt.Fprintf(out, "⚪ Stub manifest %s lists nothing, skipping.\n", path)
		app.book.Result("stub", nil, "empty manifest")
		return nil
	}
	if m.Source != "" {
		m.Source = app.cfg.Resolve(m.Source)
	}
	opts := []stub.Option{stub.WithOutput(out), stub.WithLogger(app.log.Logger)}
	if backups := app.cfg.Backups(); len(backups) > 0 {
		opts = append(opts, stub.WithDefaultSource(backups[0].Path))
	}
	result, err := stub.NewGenerator(app.store(), opts...).Apply(m)
	app.book.Result("stub", err, fmt.Sprintf("%d stubs, %d extracted, %d not found",
		len(result.Created), len(result.Extracted), len(result.NotFound)))
	return err
}

func runAudit(app *cliApp, out io.Writer, strict bool) error {
	auditor, err := audit.New(app.cfg.ProjectDir, app.cfg.SourcePrefixes(), app.log.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "🕵️ Starting Traceability Audit...")
	report, err := auditor.AuditDir(app.cfg.Layout().Stories)
	if err != nil {
		return err
	}
	if err := report.Render(out); err != nil {
		return err
	}
	app.book.Result("audit", report.Err(), fmt.Sprintf("%d stories, %d with missing files, %d unreferenced",
		len(report.Stories), len(report.WithMissing()), len(report.Unreferenced())))
	if strict {
		return report.Err()
	}
	return nil
}

func runCoverage(app *cliApp, out io.Writer, reportPath string, strict bool) error {
	path := app.cfg.CoverageReportPath()
	if reportPath != "" {
		path = app.cfg.Resolve(reportPath)
	}
	auditor, err := audit.New(app.cfg.ProjectDir, app.cfg.SourcePrefixes(), app.log.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "🔍 Starting Global Traceability Analysis...")
	report, err := auditor.Coverage(app.cfg.Layout().Stories, app.cfg.CoverageOptions())
	if err != nil {
		app.book.Result("coverage", err, path)
		return err
	}
	if err := report.Render(out); err != nil {
		return err
	}
	if err := report.WriteMarkdown(path); err != nil {
		app.book.Result("coverage", err, path)
		return err
	}
	fmt.Fprintf(out, "\n✅ Report generated at: %s\n", path)
	app.book.Result("coverage", report.Err(), fmt.Sprintf("%d stories, %d passing, %d failing, %d without tests",
		len(report.Stories), report.Count(audit.CoveragePass), report.Count(audit.CoverageFail), report.Count(audit.CoverageNoTests)))
	if strict {
		return report.Err()
	}
	return nil
}
