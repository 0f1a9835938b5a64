package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/planrecon/internal/config"
)

// FileName is the log file created under .planrecon/logs.
const FileName = "planrecon.log"

// Options controls console verbosity.
type Options struct {
	Verbose bool
	// Console receives human-readable entries. Defaults to os.Stderr.
	Console io.Writer
}

// Logger appends JSON lines to .planrecon/logs/planrecon.log so runs can be
// inspected after the terminal output is gone. Warnings and errors are also
// echoed to the console; with Verbose every level is.
type Logger struct {
	*zap.Logger
	RunID string
	file  *os.File
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string, opts Options) (*Logger, error) {
	logDir := config.LogsDir(projectDir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := zapcore.WarnLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	fileEncoder := zap.NewProductionEncoderConfig()
	fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.TimeKey = ""

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(f), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.AddSync(console), consoleLevel),
	)
	runID := uuid.NewString()
	return &Logger{
		Logger: zap.New(core).With(zap.String("run_id", runID)),
		RunID:  runID,
		file:   f,
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Close flushes buffered entries and releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.Logger.Sync()
	return l.file.Close()
}
