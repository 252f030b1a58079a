// Package artifact keeps the evidence of a registration run: page captures
// written as PDF (and sanitised HTML for failures) plus log.json, an
// append-only journal describing each capture.
package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/entrhq/enroller/pkg/browser"
)

// Kind separates captures taken on success from captures taken on failure.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// TimestampLayout is the journal's timestamp format: dd/mm/yyyy @ hh:mm:ss.
const TimestampLayout = "02/01/2006 @ 15:04:05"

// JournalFile is the journal's name inside the artifact directory.
const JournalFile = "log.json"

// Capture is what a page looked like at one moment.
type Capture struct {
	PDF  []byte
	HTML string
}

// Empty reports whether nothing was captured.
func (c Capture) Empty() bool {
	return len(c.PDF) == 0 && c.HTML == ""
}

// Payload is the context recorded next to a capture.
type Payload struct {
	// Stack is the failure detail, for error records
	Stack string

	// CourseID is the registered section, for success records
	CourseID string

	// Service names the adapter the capture came from
	Service string

	// Files are the capture files actually written, as returned by
	// SaveCapture. Only these are referenced from the journal.
	Files []string
}

// file returns the entry of files with extension ext, or "".
func (p Payload) file(ext string) string {
	for _, name := range p.Files {
		if filepath.Ext(name) == "."+ext {
			return name
		}
	}
	return ""
}

// FileName returns the base name of a capture file, e.g. "error3.pdf".
func FileName(kind Kind, seq int, ext string) string {
	return fmt.Sprintf("%s%d.%s", kind, seq, ext)
}

// FormatTimestamp renders t in the journal's layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// CapturePage renders page to PDF and reads its markup. Whatever could be
// captured is returned alongside any failure.
func CapturePage(page browser.Page) (Capture, error) {
	var (
		c    Capture
		errs []error
	)

	pdf, err := page.PDF()
	if err != nil {
		errs = append(errs, err)
	} else {
		c.PDF = pdf
	}

	html, err := page.Content()
	if err != nil {
		errs = append(errs, err)
	} else {
		c.HTML = html
	}

	if len(errs) > 0 {
		return c, fmt.Errorf("capture incomplete: %w", errors.Join(errs...))
	}
	return c, nil
}
