package browser

import (
	"context"
	"fmt"
	"sync"
)

// Slot holds at most one open page for one remote service. Opening a page
// always closes the held one first, so callers never act on a stale page.
type Slot struct {
	mu       sync.Mutex
	name     string
	launcher Launcher
	page     Page
}

// NewSlot creates an empty slot that launches pages through launcher.
func NewSlot(name string, launcher Launcher) *Slot {
	return &Slot{name: name, launcher: launcher}
}

// Open closes the held page, if any, and launches a new one.
func (s *Slot) Open(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		// The previous page is gone either way; a close failure must not
		// keep a new session from starting.
		_ = s.page.Close()
		s.page = nil
	}

	page, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	s.page = page
	return page, nil
}

// Page returns the held page or ErrNoSession.
func (s *Slot) Page() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, fmt.Errorf("%s: %w", s.name, ErrNoSession)
	}
	return s.page, nil
}

// Close releases the held page. Closing an empty slot is a no-op.
func (s *Slot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// IsOpen reports whether a page is held.
func (s *Slot) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page != nil
}
