package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/enroller/pkg/fault"
)

// Manager owns the Playwright driver and launches one Chromium instance per
// session.
type Manager struct {
	mu          sync.Mutex
	opts        Options
	playwright  *playwright.Playwright
	initialized bool
}

// NewManager creates a manager. Initialize must be called before Launch.
func NewManager(opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	return &Manager{opts: opts}
}

// Initialize starts the Playwright driver, installing browsers first when
// configured to.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Keep driver chatter off the operator console
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if m.opts.Install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Launch opens a browser, an isolated context and a page. Closing the
// returned page releases all three.
func (m *Manager) Launch(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("%w: %w", fault.ErrDriverUnavailable, ErrNotInitialized)
	}

	headless := m.opts.Headless
	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     m.opts.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w: %w", fault.ErrDriverUnavailable, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w: %w", fault.ErrDriverUnavailable, err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w: %w", fault.ErrDriverUnavailable, err)
	}

	page.SetDefaultTimeout(float64(m.opts.Timeout.Milliseconds()))

	return &session{
		browser: browser,
		context: bctx,
		page:    page,
		timeout: m.opts.Timeout,
	}, nil
}

// Shutdown stops the Playwright driver. Pages still open are closed with it.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
