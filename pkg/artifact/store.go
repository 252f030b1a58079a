package artifact

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/entrhq/enroller/pkg/browser"
)

// Store writes captures and journal records into one directory.
type Store struct {
	dir    string
	keep   []glob.Glob
	stamp  bool
	runID  string
	logger *slog.Logger

	// mu serialises journal read-modify-write cycles
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal problems such as a failed
// PDF stamp.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithStamp enables writing run properties into every PDF capture.
func WithStamp(runID string) Option {
	return func(s *Store) {
		// pdfcpu otherwise creates a config directory under the user's home
		api.DisableConfigDir()
		s.stamp = true
		s.runID = runID
	}
}

// NewStore creates a store rooted at dir. keep lists glob patterns of
// directory entries that Initialize leaves in place.
func NewStore(dir string, keep []string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, pattern := range keep {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid keep pattern %q: %w", pattern, err)
		}
		s.keep = append(s.keep, g)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// JournalPath returns the path of log.json.
func (s *Store) JournalPath() string {
	return filepath.Join(s.dir, JournalFile)
}

// Initialize creates the directory, removes everything not matched by a keep
// pattern and writes an empty journal.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read artifact directory: %w", err)
	}
	for _, entry := range entries {
		if s.kept(entry.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	return writeJournal(s.JournalPath(), emptyJournal())
}

func (s *Store) kept(name string) bool {
	for _, g := range s.keep {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// SaveCapture writes <kind><seq>.pdf and, for errors, <kind><seq>.html. It
// returns the base names of the files written.
func (s *Store) SaveCapture(kind Kind, seq int, c Capture) ([]string, error) {
	var written []string

	if len(c.PDF) > 0 {
		name := FileName(kind, seq, "pdf")
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, c.PDF, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)

		if s.stamp {
			s.stampPDF(path, kind, seq)
		}
	}

	if kind == KindError && c.HTML != "" {
		name := FileName(kind, seq, "html")
		markup := c.HTML
		if snap, err := browser.Sanitize(c.HTML, 0); err == nil {
			markup = snap.HTML
		} else {
			s.logger.Warn("keeping raw markup", "file", name, "error", err)
		}

		if err := os.WriteFile(filepath.Join(s.dir, name), []byte(markup), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)
	}

	return written, nil
}

// stampPDF validates the capture and records the run in its document
// properties. A capture that cannot be stamped is kept as is.
func (s *Store) stampPDF(path string, kind Kind, seq int) {
	if err := api.ValidateFile(path, nil); err != nil {
		s.logger.Warn("pdf capture failed validation", "file", filepath.Base(path), "error", err)
		return
	}

	props := map[string]string{
		"Run":      s.runID,
		"Kind":     string(kind),
		"Sequence": fmt.Sprint(seq),
	}
	if err := api.AddPropertiesFile(path, "", props, nil); err != nil {
		s.logger.Warn("pdf capture could not be stamped", "file", filepath.Base(path), "error", err)
	}
}

// AppendLogRecord adds one record to log.json. Records reference only the
// capture files listed in p.Files; a missing file leaves its field empty.
func (s *Store) AppendLogRecord(kind Kind, seq int, ts time.Time, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := ReadJournal(s.JournalPath())
	if err != nil {
		return err
	}

	switch kind {
	case KindError:
		j.Errors = append(j.Errors, ErrorRecord{
			Filename:  p.file("pdf"),
			HTMLFile:  p.file("html"),
			Timestamp: FormatTimestamp(ts),
			Stack:     p.Stack,
		})
	case KindSuccess:
		j.Registrations = append(j.Registrations, RegistrationRecord{
			Filename:  p.file("pdf"),
			Timestamp: FormatTimestamp(ts),
			CourseID:  p.CourseID,
			Service:   p.Service,
		})
	default:
		return fmt.Errorf("unknown artifact kind %q", kind)
	}

	return writeJournal(s.JournalPath(), j)
}
