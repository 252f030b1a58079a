// Package logging configures the process-wide structured logger.
//
// Diagnostics go either to stderr, colourised by tint, or to a JSON file.
// Every record carries the run ID so the log of one run can be separated
// from the next when several share a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"
)

var (
	// Global run ID for the current execution
	runID     string
	runIDOnce sync.Once
)

// RunID returns the ID of this execution, creating it on first use.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// Options selects the level and destination of diagnostics.
type Options struct {
	// Level is debug, info, warn or error
	Level string

	// Debug forces the debug level
	Debug bool

	// File receives JSON records; empty means stderr
	File string
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger and returns it with the run ID
// attached. The returned closer releases the log file, if any.
//
// If the log file cannot be opened, Setup falls back to stderr and returns
// the error alongside a working logger, so callers can warn and carry on.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}

	if opts.File == "" {
		return stderrLogger(level), nopCloser{}, nil
	}

	file, err := openLogFile(opts.File)
	if err != nil {
		logger := stderrLogger(level)
		logger.Warn("falling back to stderr logging", "error", err)
		return logger, nopCloser{}, err
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})).
		With("run_id", RunID())
	slog.SetDefault(logger)
	return logger, file, nil
}

// NewTextLogger builds a tint logger on w without touching the default.
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	})).With("run_id", RunID())
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stderrLogger(level slog.Level) *slog.Logger {
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	return slog.Default().With("run_id", RunID())
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// append so restarts keep earlier runs
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
