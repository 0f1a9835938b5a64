// cmd/planrecon/main.go
//
// This is the entry point for the planrecon CLI.
// It restores per-record planning artifacts from backup documents and
// checks the sprint ledger against the restored tree.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kingrea/planrecon/internal/audit"
	"github.com/kingrea/planrecon/internal/reconcile"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitInvalidUsage = 2
)

// usageError marks errors caused by bad arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	app := &cliApp{}
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	app.close()
	return exitCode(err, stderr)
}

// exitCode maps err to a process status and prints fatal errors. Failed
// reconciliation and audit results were already rendered, so they exit
// without another message.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *usageError
	switch {
	case errors.As(err, &usage), strings.HasPrefix(err.Error(), "unknown command"):
		fmt.Fprintf(stderr, "🚨 %v\nRun 'planrecon --help' for usage.\n", err)
		return ExitInvalidUsage
	case errors.Is(err, reconcile.ErrMissingArtifacts), errors.Is(err, audit.ErrMissingReferences),
		errors.Is(err, audit.ErrCoverageGaps):
		return ExitFailure
	default:
		fmt.Fprintf(stderr, "🚨 %v\n", err)
		return ExitFailure
	}
}
