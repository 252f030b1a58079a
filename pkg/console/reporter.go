// Package console prints the operator-facing view of a run: a progress line
// per attempt, notices as the run moves between services and a final report.
// Diagnostics belong in slog; this is what a person watching the terminal
// reads.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and the final report
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows progress (default)
	LogLevelNormal
	// LogLevelVerbose adds per-step detail
	LogLevelVerbose
	// LogLevelDebug shows everything
	LogLevelDebug
)

// ParseLogLevel converts a verbosity name to a LogLevel. Unknown names are
// normal.
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// ProgressLayout formats the time on progress lines: dd/mm/yyyy @ hh:mm:ss.
const ProgressLayout = "02/01/2006 @ 15:04:05"

const separatorWidth = 62

type styles struct {
	header  lipgloss.Style
	section lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		section: r.NewStyle().Foreground(lipgloss.Color("6")),
		info:    r.NewStyle().Foreground(lipgloss.Color("217")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		err:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Reporter writes the console view of a run.
type Reporter struct {
	level  LogLevel
	writer io.Writer
	styles styles

	now       func() time.Time
	startTime time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// NewReporter creates a reporter at the given level.
func NewReporter(level LogLevel, opts ...Option) *Reporter {
	r := &Reporter{
		level:  level,
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	// colour only when the writer is a terminal that supports it
	r.styles = newStyles(lipgloss.NewRenderer(r.writer))
	r.startTime = r.now()
	return r
}

func (r *Reporter) printf(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(r.writer, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints a prominent header message
func (r *Reporter) Header(message string) {
	if r.level >= LogLevelNormal {
		rule := strings.Repeat("=", separatorWidth)
		fmt.Fprintln(r.writer)
		r.printf(r.styles.header, "%s", rule)
		r.printf(r.styles.header, "  %s", message)
		r.printf(r.styles.header, "%s", rule)
	}
}

// Section prints a section divider
func (r *Reporter) Section(title string) {
	if r.level >= LogLevelNormal {
		fmt.Fprintln(r.writer)
		r.printf(r.styles.section, "▶ %s", title)
	}
}

// Separator prints the rule between attempts
func (r *Reporter) Separator() {
	if r.level >= LogLevelNormal {
		fmt.Fprintln(r.writer)
		r.printf(r.styles.muted, "%s", strings.Repeat("-", separatorWidth))
	}
}

// Progress prints the counters and the current time
func (r *Reporter) Progress(c counters.Counters) {
	if r.level >= LogLevelNormal {
		r.printf(r.styles.info, "%s @ %s", c, r.now().Format(ProgressLayout))
	}
}

// Successf prints a success message with checkmark
func (r *Reporter) Successf(format string, args ...interface{}) {
	if r.level >= LogLevelNormal {
		r.printf(r.styles.success, "✓ "+format, args...)
	}
}

// Infof prints an informational message
func (r *Reporter) Infof(format string, args ...interface{}) {
	if r.level >= LogLevelNormal {
		r.printf(r.styles.info, format, args...)
	}
}

// Warningf prints a warning message
func (r *Reporter) Warningf(format string, args ...interface{}) {
	r.printf(r.styles.warning, "⚠ Warning: "+format, args...)
}

// Errorf prints an error message
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.printf(r.styles.err, "✗ Error: "+format, args...)
}

// Verbosef prints detailed information (only in verbose mode)
func (r *Reporter) Verbosef(format string, args ...interface{}) {
	if r.level >= LogLevelVerbose {
		r.printf(r.styles.muted, "→ "+format, args...)
	}
}

// Debugf prints debug information (only in debug mode)
func (r *Reporter) Debugf(format string, args ...interface{}) {
	if r.level >= LogLevelDebug {
		r.printf(r.styles.muted, "[DEBUG] "+format, args...)
	}
}

// Summary prints the final report of a run. err is nil for a successful run.
func (r *Reporter) Summary(courseID string, c counters.Counters, artifactsDir string, err error) {
	rule := strings.Repeat("=", separatorWidth)

	fmt.Fprintln(r.writer)
	r.printf(r.styles.header, "%s", rule)
	r.printf(r.styles.header, "  RUN SUMMARY")
	r.printf(r.styles.header, "%s", rule)

	if err == nil {
		r.printf(r.styles.success, "  Status: ✓ REGISTERED")
	} else {
		r.printf(r.styles.err, "  Status: ✗ FAILED")
	}
	fmt.Fprintf(r.writer, "  Course: %s\n", courseID)
	fmt.Fprintf(r.writer, "  Duration: %s\n", r.now().Sub(r.startTime).Round(time.Second))
	fmt.Fprintf(r.writer, "  Counters: %s\n", c)
	if artifactsDir != "" {
		fmt.Fprintf(r.writer, "  Artifacts: %s\n", artifactsDir)
	}

	if err != nil {
		r.printError(err)
	}

	r.printf(r.styles.header, "%s", rule)
	fmt.Fprintln(r.writer)
}

func (r *Reporter) printError(err error) {
	fmt.Fprintln(r.writer)

	fe, ok := fault.As(err)
	if !ok {
		r.printf(r.styles.err, "  Error Details:")
		r.printf(r.styles.err, "    %s", err)
		return
	}

	r.printf(r.styles.err, "  Error Details: %s", fe.Kind)
	r.printf(r.styles.err, "    %s", fe.Message)
	if r.level >= LogLevelVerbose {
		for _, line := range strings.Split(fe.Detail(), "\n")[1:] {
			r.printf(r.styles.muted, "    %s", line)
		}
	}
}
