package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/planrecon/internal/artifact"
	"github.com/kingrea/planrecon/internal/config"
	"github.com/kingrea/planrecon/internal/logbook"
	"github.com/kingrea/planrecon/internal/logging"
)

// cliApp carries the state shared by every subcommand for one invocation.
type cliApp struct {
	projectDir string
	verbose    bool

	cfg  *config.Config
	log  *logging.Logger
	book *logbook.Logbook
}

// setup loads the project config, the logger and the run history.
func (a *cliApp) setup(cmd *cobra.Command) error {
	dir := a.projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.ProjectDir, logging.Options{Verbose: a.verbose, Console: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	book, err := logbook.Open(cfg.ProjectDir)
	if err != nil {
		log.Warn("run history unavailable", zap.Error(err))
	}
	a.cfg, a.log, a.book = cfg, log, book
	a.log.Debug("command started",
		zap.String("command", cmd.Name()),
		zap.String("project", cfg.ProjectDir))
	return nil
}

func (a *cliApp) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

func (a *cliApp) store() *artifact.Store {
	return artifact.NewStore(a.cfg.Layout(), artifact.WithLogger(a.log.Logger))
}

func newRootCmd(app *cliApp) *cobra.Command {
	root := &cobra.Command{
		Use:   "planrecon",
		Short: "Restore planning artifacts and reconcile them against the sprint ledger",
		Long: `planrecon rebuilds one file per epic and per story from consolidated
planning backups, then checks every entry of the sprint ledger against the
restored tree.

Run "planrecon run" to restore, generate placeholders and validate in one pass.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.log != nil {
				_ = app.log.Sync()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	// Global flags
	root.PersistentFlags().StringVarP(&app.projectDir, "project", "C", "", "Project directory (defaults to the working directory)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Echo debug logs to stderr")

	root.AddCommand(
		newInitCmd(app),
		newRestoreCmd(app),
		newValidateCmd(app),
		newStubCmd(app),
		newAuditCmd(app),
		newRunCmd(app),
	)
	return root
}

// usageArgs wraps a cobra validator so its failures map to the usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
