// Package availability polls the public schedule builder for an open seat in
// the target course. It needs no login.
package availability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/browser"
)

// ServiceName tags captures and log lines produced by this adapter.
const ServiceName = "availability"

// DefaultFullSentinel is the seat cell text that marks a full section.
const DefaultFullSentinel = "full"

// Options configures the adapter.
type Options struct {
	URL string

	// FullSentinel is matched case-sensitively against the seat cell
	FullSentinel string

	// Timeout bounds every wait on the page
	Timeout time.Duration
}

// Checker is the availability adapter. It holds at most one session.
type Checker struct {
	slot   *browser.Slot
	opts   Options
	logger *slog.Logger
}

// New creates an availability adapter launching pages through launcher.
func New(launcher browser.Launcher, opts Options, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.FullSentinel == "" {
		opts.FullSentinel = DefaultFullSentinel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = browser.DefaultTimeout
	}
	return &Checker{
		slot:   browser.NewSlot(ServiceName, launcher),
		opts:   opts,
		logger: logger.With("service", ServiceName),
	}
}

// OpenSession starts a fresh session on the welcome page, replacing any
// session already held.
func (c *Checker) OpenSession(ctx context.Context) error {
	page, err := c.slot.Open(ctx)
	if err != nil {
		return err
	}
	if err := page.Goto(c.opts.URL); err != nil {
		return fmt.Errorf("failed to open schedule builder: %w", err)
	}
	c.logger.Debug("session opened", "url", c.opts.URL)
	return nil
}

// CloseSession releases the session. It is safe to call without one.
func (c *Checker) CloseSession() error {
	return c.slot.Close()
}

// HasSession reports whether a session is held.
func (c *Checker) HasSession() bool {
	return c.slot.IsOpen()
}

// GotoHome clicks through the welcome and disclaimer pages.
func (c *Checker) GotoHome(ctx context.Context) error {
	page, err := c.slot.Page()
	if err != nil {
		return err
	}

	if err := page.WaitFor(selWelcomeContinue, c.opts.Timeout); err != nil {
		return err
	}
	if err := page.Click(selWelcomeContinue); err != nil {
		return err
	}
	if err := page.WaitForNavigation(c.opts.Timeout); err != nil {
		return err
	}

	if err := page.WaitFor(selDisclaimerContinue, c.opts.Timeout); err != nil {
		return err
	}
	return page.Click(selDisclaimerContinue)
}

// SelectTerm picks the term by its code.
func (c *Checker) SelectTerm(ctx context.Context, term string) error {
	page, err := c.slot.Page()
	if err != nil {
		return err
	}

	sel := selTermPrefix + term
	if err := page.WaitFor(sel, c.opts.Timeout); err != nil {
		return err
	}
	return page.Click(sel)
}

// SelectCourse searches for the course and waits for its row.
func (c *Checker) SelectCourse(ctx context.Context, courseID string) error {
	page, err := c.slot.Page()
	if err != nil {
		return err
	}

	if err := page.WaitFor(selCourseSearch, c.opts.Timeout); err != nil {
		return err
	}
	if err := page.Fill(selCourseSearch, courseID); err != nil {
		return err
	}

	if err := page.WaitFor(selSearchSubmit, c.opts.Timeout); err != nil {
		return err
	}
	if err := page.Click(selSearchSubmit); err != nil {
		return err
	}

	return page.WaitFor(selCourseRow, c.opts.Timeout)
}

// HasAvailableSeat reloads the course and reports whether its seat cell
// lacks the full sentinel. An empty cell counts as full.
func (c *Checker) HasAvailableSeat(ctx context.Context) (bool, error) {
	page, err := c.slot.Page()
	if err != nil {
		return false, err
	}

	if err := page.Reload(); err != nil {
		return false, err
	}
	if err := page.WaitFor(selCourseRow, c.opts.Timeout); err != nil {
		return false, err
	}

	text, err := page.TextContent(selSeatStatus)
	if err != nil {
		return false, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	open := !strings.Contains(text, c.opts.FullSentinel)
	c.logger.Debug("seat status", "text", text, "open", open)
	return open, nil
}

// Capture renders the current page.
func (c *Checker) Capture(ctx context.Context) (artifact.Capture, error) {
	page, err := c.slot.Page()
	if err != nil {
		return artifact.Capture{}, err
	}
	return artifact.CapturePage(page)
}
