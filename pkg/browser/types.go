package browser

import (
	"context"
	"errors"
	"time"
)

// Page is a single controllable browser page. Every wait is bounded: a wait
// that runs out returns an error matching fault.ErrWaitExpired.
type Page interface {
	// Goto navigates and waits for the network to settle
	Goto(url string) error

	// Reload reloads and waits for the network to settle
	Reload() error

	Click(selector string) error
	Fill(selector, value string) error
	SelectOption(selector, value string) error

	// WaitFor waits until selector is attached to the page
	WaitFor(selector string, timeout time.Duration) error

	// WaitForNavigation waits for the current navigation to finish loading
	WaitForNavigation(timeout time.Duration) error

	// Exists reports whether selector matches right now, without waiting
	Exists(selector string) (bool, error)

	TextContent(selector string) (string, error)

	// Content returns the serialized DOM
	Content() (string, error)

	// PDF renders the page as an A4 document
	PDF() ([]byte, error)

	Close() error
}

// Launcher opens a fresh page in its own browser session
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// Options configures how sessions are launched.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Install downloads the browser binaries before the first launch
	Install bool

	// Args are passed to the browser process
	Args []string

	// Timeout is the default timeout for page operations
	Timeout time.Duration

	// Viewport sets the initial viewport size
	Viewport *Viewport
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for session launch
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

var (
	// ErrNoSession is returned when an operation needs a page and none is open.
	ErrNoSession = errors.New("no browser session open")

	// ErrNotInitialized is returned by Launch before Initialize.
	ErrNotInitialized = errors.New("browser manager not initialized")
)
