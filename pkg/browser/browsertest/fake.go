// Package browsertest provides an in-memory browser.Page for adapter tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/enroller/pkg/browser"
	"github.com/entrhq/enroller/pkg/fault"
)

// Page is a scriptable fake page. Selectors are either present or absent;
// waiting for an absent selector fails immediately with fault.ErrWaitExpired.
type Page struct {
	mu sync.Mutex

	present map[string]bool
	texts   map[string]string
	delays  map[string]time.Duration
	fails   map[string]error

	// HTML and PDFBytes are returned by Content and PDF
	HTML     string
	PDFBytes []byte

	// OnClick lets a test change the page in response to a click
	OnClick func(p *Page, selector string)

	// OnReload lets a test change the page in response to a reload
	OnReload func(p *Page)

	// NavigationErr is returned by WaitForNavigation
	NavigationErr error

	calls   []string
	filled  map[string]string
	closed  bool
	onClose func()
}

var _ browser.Page = (*Page)(nil)

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{
		present: make(map[string]bool),
		texts:   make(map[string]string),
		delays:  make(map[string]time.Duration),
		fails:   make(map[string]error),
		filled:  make(map[string]string),
	}
}

// Show makes selectors present.
func (p *Page) Show(selectors ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range selectors {
		p.present[s] = true
	}
	return p
}

// Hide makes selectors absent.
func (p *Page) Hide(selectors ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range selectors {
		delete(p.present, s)
	}
	return p
}

// SetText sets the text content of a selector and makes it present.
func (p *Page) SetText(selector, text string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[selector] = true
	p.texts[selector] = text
	return p
}

// Delay makes WaitFor on selector take d before it resolves.
func (p *Page) Delay(selector string, d time.Duration) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays[selector] = d
	return p
}

// Fail makes the operation op ("goto", "click", "fill", "select", "reload",
// "text", "content", "pdf") on target fail with err. target is a selector, a
// URL or "" for page-wide operations.
func (p *Page) Fail(op, target string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fails[op+" "+target] = err
	return p
}

// Calls returns every operation performed, in order, e.g. "click #mcg_un_submit".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Filled returns the value last filled into selector.
func (p *Page) Filled(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled[selector]
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(op, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op+" "+target)
	if p.closed {
		return fmt.Errorf("%s %s: page closed: %w", op, target, fault.ErrDriverUnavailable)
	}
	return p.fails[op+" "+target]
}

func (p *Page) Goto(url string) error {
	return p.record("goto", url)
}

func (p *Page) Reload() error {
	if err := p.record("reload", ""); err != nil {
		return err
	}
	if p.OnReload != nil {
		p.OnReload(p)
	}
	return nil
}

func (p *Page) Click(selector string) error {
	if err := p.record("click", selector); err != nil {
		return err
	}
	if !p.has(selector) {
		return fmt.Errorf("click %s failed: %w", selector, fault.ErrWaitExpired)
	}
	if p.OnClick != nil {
		p.OnClick(p, selector)
	}
	return nil
}

func (p *Page) Fill(selector, value string) error {
	if err := p.record("fill", selector); err != nil {
		return err
	}
	if !p.has(selector) {
		return fmt.Errorf("fill %s failed: %w", selector, fault.ErrWaitExpired)
	}
	p.mu.Lock()
	p.filled[selector] = value
	p.mu.Unlock()
	return nil
}

func (p *Page) SelectOption(selector, value string) error {
	if err := p.record("select", selector); err != nil {
		return err
	}
	if !p.has(selector) {
		return fmt.Errorf("select %s failed: %w", selector, fault.ErrWaitExpired)
	}
	p.mu.Lock()
	p.filled[selector] = value
	p.mu.Unlock()
	return nil
}

func (p *Page) WaitFor(selector string, timeout time.Duration) error {
	if err := p.record("wait", selector); err != nil {
		return err
	}

	p.mu.Lock()
	d := p.delays[selector]
	p.mu.Unlock()
	if d > 0 {
		if d > timeout && timeout > 0 {
			time.Sleep(timeout)
			return fmt.Errorf("wait for %s failed: %w", selector, fault.ErrWaitExpired)
		}
		time.Sleep(d)
	}

	if !p.has(selector) {
		return fmt.Errorf("wait for %s failed: %w", selector, fault.ErrWaitExpired)
	}
	return nil
}

func (p *Page) WaitForNavigation(time.Duration) error {
	if err := p.record("navigation", ""); err != nil {
		return err
	}
	return p.NavigationErr
}

func (p *Page) Exists(selector string) (bool, error) {
	if err := p.record("exists", selector); err != nil {
		return false, err
	}
	return p.has(selector), nil
}

func (p *Page) TextContent(selector string) (string, error) {
	if err := p.record("text", selector); err != nil {
		return "", err
	}
	if !p.has(selector) {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[selector], nil
}

func (p *Page) Content() (string, error) {
	if err := p.record("content", ""); err != nil {
		return "", err
	}
	return p.HTML, nil
}

func (p *Page) PDF() ([]byte, error) {
	if err := p.record("pdf", ""); err != nil {
		return nil, err
	}
	return p.PDFBytes, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	onClose := p.onClose
	p.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (p *Page) has(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present[selector]
}

// Launcher hands out pages built by Build and counts opens and closes.
type Launcher struct {
	mu sync.Mutex

	// Build creates the page for each launch; nil yields NewPage()
	Build func() *Page

	// Err, when set, fails every launch
	Err error

	pages  []*Page
	opened int
	closed int
}

var _ browser.Launcher = (*Launcher)(nil)

// Launch returns a new fake page.
func (l *Launcher) Launch(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}

	var p *Page
	if l.Build != nil {
		p = l.Build()
	} else {
		p = NewPage()
	}
	p.onClose = func() {
		l.mu.Lock()
		l.closed++
		l.mu.Unlock()
	}

	l.pages = append(l.pages, p)
	l.opened++
	return p, nil
}

// Opened is the number of successful launches.
func (l *Launcher) Opened() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened
}

// ClosedCount is the number of launched pages that have been closed.
func (l *Launcher) ClosedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Last returns the most recently launched page.
func (l *Launcher) Last() *Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}
