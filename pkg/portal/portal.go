// Package portal drives the authenticated registration portal: login,
// navigation to the quick-add form and course registration attempts.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/browser"
	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/fault"
)

// ServiceName tags captures and log lines produced by this adapter.
const ServiceName = "portal"

// Options configures the adapter.
type Options struct {
	URL string

	// SubmitCandidates is how many form positions are searched for the
	// submit control
	SubmitCandidates int

	// Timeout bounds every wait on the page
	Timeout time.Duration
}

// Portal is the registration portal adapter. It holds at most one session.
type Portal struct {
	slot   *browser.Slot
	opts   Options
	logger *slog.Logger
}

// New creates a portal adapter launching pages through launcher.
func New(launcher browser.Launcher, opts Options, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SubmitCandidates <= 0 {
		opts.SubmitCandidates = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = browser.DefaultTimeout
	}
	return &Portal{
		slot:   browser.NewSlot(ServiceName, launcher),
		opts:   opts,
		logger: logger.With("service", ServiceName),
	}
}

// OpenSession starts a fresh session on the login page, replacing any
// session already held.
func (p *Portal) OpenSession(ctx context.Context) error {
	page, err := p.slot.Open(ctx)
	if err != nil {
		return err
	}
	if err := page.Goto(p.opts.URL); err != nil {
		return fmt.Errorf("failed to open portal: %w", err)
	}
	p.logger.Debug("session opened", "url", p.opts.URL)
	return nil
}

// CloseSession releases the session. It is safe to call without one.
func (p *Portal) CloseSession() error {
	return p.slot.Close()
}

// HasSession reports whether a session is held.
func (p *Portal) HasSession() bool {
	return p.slot.IsOpen()
}

// Login submits the credentials. A login form that is still shown after
// submitting means the portal rejected them.
func (p *Portal) Login(ctx context.Context, creds config.Credentials) error {
	page, err := p.slot.Page()
	if err != nil {
		return err
	}

	if err := page.Fill(selUsername, creds.Username); err != nil {
		return err
	}
	if err := page.Fill(selPassword, creds.Password); err != nil {
		return err
	}
	if err := page.Click(selLoginButton); err != nil {
		return err
	}

	// a slow redirect is judged by what the page shows afterwards
	_ = page.WaitForNavigation(p.opts.Timeout)

	stillOnLogin, err := page.Exists(selUsername)
	if err != nil {
		return err
	}
	if stillOnLogin {
		return fmt.Errorf("login as %s: %w", creds.Username, fault.ErrCredentialsRejected)
	}

	return page.WaitFor(selStudentMenu, p.opts.Timeout)
}

// GotoRegistrationArea walks from the main menu to the quick-add form of term.
func (p *Portal) GotoRegistrationArea(ctx context.Context, term string) error {
	page, err := p.slot.Page()
	if err != nil {
		return err
	}

	steps := []struct {
		click, next string
	}{
		{selStudentMenu, selRegistrationMenu},
		{selRegistrationMenu, selQuickAdd},
		{selQuickAdd, selSelectTerm},
	}
	for _, step := range steps {
		if err := page.Click(step.click); err != nil {
			return err
		}
		if err := page.WaitFor(step.next, p.opts.Timeout); err != nil {
			return err
		}
	}

	if err := page.SelectOption(selSelectTerm, term); err != nil {
		return err
	}
	if err := page.Click(selSubmitTerm); err != nil {
		return err
	}
	return page.WaitFor(selCourseID, p.opts.Timeout)
}

// SubmitRegistration enters courseID and submits the quick-add form. It
// reports false when the portal answers with its registration errors table.
func (p *Portal) SubmitRegistration(ctx context.Context, courseID string) (bool, error) {
	page, err := p.slot.Page()
	if err != nil {
		return false, err
	}

	if err := page.Fill(selCourseID, courseID); err != nil {
		return false, err
	}

	submit, err := browser.Race(ctx, page, submitCandidates(p.opts.SubmitCandidates), p.opts.Timeout)
	if err != nil {
		if errors.Is(err, browser.ErrNoneResolved) {
			return false, fmt.Errorf("%w: %v", fault.ErrNoSubmitControl, err)
		}
		return false, err
	}
	p.logger.Debug("submit control found", "selector", submit)

	if err := page.Click(submit); err != nil {
		return false, err
	}

	if err := page.WaitFor(selCourseID, p.opts.Timeout); err != nil {
		limited, existsErr := page.Exists(selRegistrationLimit)
		if existsErr == nil && limited {
			// the expired wait is only detail; the banner decides the outcome
			return false, fmt.Errorf("%w: %v", fault.ErrWindowExhausted, err)
		}
		return false, err
	}

	rejected, err := page.Exists(selRegistrationErrors)
	if err != nil {
		return false, err
	}
	return !rejected, nil
}

// DetectLoggedOut reports whether the page shows the login form or the
// session break-in banner. Without a session it reports false.
func (p *Portal) DetectLoggedOut(ctx context.Context) bool {
	page, err := p.slot.Page()
	if err != nil {
		return false
	}

	_ = page.WaitForNavigation(p.opts.Timeout)
	return browser.AnyResolves(ctx, page, []string{selBreakIn, selUsername}, p.opts.Timeout)
}

// Capture renders the current page.
func (p *Portal) Capture(ctx context.Context) (artifact.Capture, error) {
	page, err := p.slot.Page()
	if err != nil {
		return artifact.Capture{}, err
	}
	return artifact.CapturePage(page)
}
