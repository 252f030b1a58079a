package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/enroller/pkg/fault"
)

// session is a Playwright page together with the browser and context that
// were launched for it.
type session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

var _ Page = (*session)(nil)

// Goto navigates the page to url.
func (s *session) Goto(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return wrap("navigation failed", err)
	}
	return nil
}

// Reload reloads the current page.
func (s *session) Reload() error {
	_, err := s.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return wrap("reload failed", err)
	}
	return nil
}

// Click clicks an element matching the selector.
func (s *session) Click(selector string) error {
	if err := s.page.Click(selector); err != nil {
		return wrap(fmt.Sprintf("click %s failed", selector), err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *session) Fill(selector, value string) error {
	if err := s.page.Fill(selector, value); err != nil {
		return wrap(fmt.Sprintf("fill %s failed", selector), err)
	}
	return nil
}

// SelectOption picks the option with the given value in a <select>.
func (s *session) SelectOption(selector, value string) error {
	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return wrap(fmt.Sprintf("select %s failed", selector), err)
	}
	return nil
}

// WaitFor waits for an element matching selector to be attached.
func (s *session) WaitFor(selector string, timeout time.Duration) error {
	ms := s.millis(timeout)
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: &ms,
	})
	if err != nil {
		return wrap(fmt.Sprintf("wait for %s failed", selector), err)
	}
	return nil
}

// WaitForNavigation waits for the page to finish loading.
func (s *session) WaitForNavigation(timeout time.Duration) error {
	ms := s.millis(timeout)
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: &ms,
	})
	if err != nil {
		return wrap("wait for navigation failed", err)
	}
	return nil
}

// Exists queries selector without waiting.
func (s *session) Exists(selector string) (bool, error) {
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return false, wrap(fmt.Sprintf("selector query %s failed", selector), err)
	}
	return element != nil, nil
}

// TextContent returns the text of the first element matching selector.
func (s *session) TextContent(selector string) (string, error) {
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", wrap(fmt.Sprintf("selector query %s failed", selector), err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	text, err := element.TextContent()
	if err != nil {
		return "", wrap("text extraction failed", err)
	}
	return text, nil
}

// Content returns the page HTML.
func (s *session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", wrap("content extraction failed", err)
	}
	return html, nil
}

// PDF renders the page as an A4 PDF.
func (s *session) PDF() ([]byte, error) {
	data, err := s.page.PDF(playwright.PagePdfOptions{
		Format: playwright.String("A4"),
	})
	if err != nil {
		return nil, wrap("pdf render failed", err)
	}
	return data, nil
}

// Close releases the page, its context and its browser. Every resource is
// closed even when an earlier one fails.
func (s *session) Close() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %w", errors.Join(errs...))
	}
	return nil
}

func (s *session) millis(timeout time.Duration) float64 {
	if timeout <= 0 {
		timeout = s.timeout
	}
	return float64(timeout.Milliseconds())
}

// wrap annotates a Playwright error, translating timeouts into
// fault.ErrWaitExpired and a closed target into fault.ErrDriverUnavailable.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%s: %w: %w", op, fault.ErrWaitExpired, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%s: %w: %w", op, fault.ErrDriverUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
