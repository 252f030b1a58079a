// Package pause expresses waits in the units the run is configured in.
package pause

import (
	"context"
	"fmt"
	"time"
)

// Unit is the granularity of a pause
type Unit time.Duration

const (
	Second Unit = Unit(time.Second)
	Minute Unit = Unit(time.Minute)
	Hour   Unit = Unit(time.Hour)
)

func (u Unit) String() string {
	switch u {
	case Second:
		return "sec"
	case Minute:
		return "min"
	case Hour:
		return "hr"
	default:
		return time.Duration(u).String()
	}
}

// For converts n units into a duration. Negative n is treated as zero.
func For(n int, unit Unit) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Duration(unit)
}

// Describe renders a pause the way the console prints it, e.g. "5 mins".
func Describe(n int, unit Unit) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Sleeper blocks for a fixed pause. Implementations return ctx.Err() when the
// context ends before the pause does.
type Sleeper interface {
	Sleep(ctx context.Context, n int, unit Unit) error
}

// Clock sleeps on the wall clock
type Clock struct{}

// Sleep waits for n units or until ctx is done.
func (Clock) Sleep(ctx context.Context, n int, unit Unit) error {
	d := For(n, unit)
	if d == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
