package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, time.August, 4, 9, 5, 7, 0, time.Local)
	return func() time.Time { return ts }
}

func newTestReporter(level LogLevel) (*Reporter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewReporter(level, WithWriter(&buf), WithClock(fixedClock())), &buf
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"quiet":   LogLevelQuiet,
		"normal":  LogLevelNormal,
		"verbose": LogLevelVerbose,
		"debug":   LogLevelDebug,
		"":        LogLevelNormal,
		"loud":    LogLevelNormal,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestProgress(t *testing.T) {
	r, buf := newTestReporter(LogLevelNormal)

	r.Separator()
	r.Progress(counters.Counters{Checks: 3, Logins: 1, Attempts: 2})

	out := buf.String()
	assert.Contains(t, out, strings.Repeat("-", 62))
	assert.Contains(t, out, "checks=3 logins=1 attempts=2 errors=0 successes=0 @ 04/08/2025 @ 09:05:07")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must not be coloured")
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level   LogLevel
		want    []string
		notWant []string
	}{
		{
			level:   LogLevelQuiet,
			want:    []string{"⚠ Warning: slow", "✗ Error: broken"},
			notWant: []string{"polling", "✓ open", "→ detail", "[DEBUG]"},
		},
		{
			level:   LogLevelNormal,
			want:    []string{"polling", "✓ open", "⚠ Warning: slow"},
			notWant: []string{"→ detail", "[DEBUG]"},
		},
		{
			level:   LogLevelVerbose,
			want:    []string{"→ detail"},
			notWant: []string{"[DEBUG]"},
		},
		{
			level: LogLevelDebug,
			want:  []string{"→ detail", "[DEBUG] internals"},
		},
	}

	for _, tt := range tests {
		r, buf := newTestReporter(tt.level)
		r.Infof("polling %s", "availability")
		r.Successf("open")
		r.Warningf("slow")
		r.Errorf("broken")
		r.Verbosef("detail")
		r.Debugf("internals")

		for _, w := range tt.want {
			assert.Contains(t, buf.String(), w, "level %d", tt.level)
		}
		for _, n := range tt.notWant {
			assert.NotContains(t, buf.String(), n, "level %d", tt.level)
		}
	}
}

func TestSummary(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r, buf := newTestReporter(LogLevelQuiet)
		r.Summary("1234", counters.Counters{Successes: 2}, "./artifacts", nil)

		out := buf.String()
		assert.Contains(t, out, "REGISTERED")
		assert.Contains(t, out, "Course: 1234")
		assert.Contains(t, out, "successes=2")
		assert.Contains(t, out, "Artifacts: ./artifacts")
	})

	t.Run("classified failure", func(t *testing.T) {
		r, buf := newTestReporter(LogLevelVerbose)
		err := fault.New(fault.KindInvalidCredentials, "portal rejected the credentials", fault.ErrCredentialsRejected)
		r.Summary("1234", counters.Counters{Logins: 1}, "", err)

		out := buf.String()
		assert.Contains(t, out, "FAILED")
		assert.Contains(t, out, "invalid_credentials")
		assert.Contains(t, out, "caused by: credentials rejected")
	})

	t.Run("plain failure", func(t *testing.T) {
		r, buf := newTestReporter(LogLevelNormal)
		r.Summary("1234", counters.Counters{}, "", errors.New("setup failed"))
		assert.Contains(t, buf.String(), "setup failed")
	})
}
