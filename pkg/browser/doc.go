// Package browser drives headless Chromium through Playwright for the
// registration and availability adapters.
//
// # Architecture
//
// The package is built around three pieces:
//
//  1. Page: the small set of page operations the adapters need
//  2. Manager: owns the Playwright driver and launches one browser per page
//  3. Slot: holds at most one open page for one remote service
//
// Adapters depend only on Page and Launcher, so tests substitute the fake in
// browsertest for a real browser.
//
// # Errors
//
// Playwright timeouts surface as fault.ErrWaitExpired and a closed target as
// fault.ErrDriverUnavailable, which is what the orchestrator classifies on.
//
// # Races
//
// Race waits on several selectors at once and returns the first that appears.
// The portal uses it to find the one submit control that exists among many
// candidate positions, and to decide whether a page shows a login form or a
// session-expired banner.
//
// # Evidence
//
// Sanitize strips scripts and styles from page markup before it is written
// next to a failure capture.
package browser
