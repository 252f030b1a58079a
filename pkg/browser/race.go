package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/enroller/pkg/fault"
)

// ErrNoneResolved is returned by Race when no selector appeared in time.
var ErrNoneResolved = fmt.Errorf("no selector resolved: %w", fault.ErrWaitExpired)

// Race waits for every selector at once and returns the first one that
// appears. Losing waits are left to run out on their own and their results
// are dropped. Only one of the raced conditions can hold on a given render, so
// there are no ties to break.
func Race(ctx context.Context, page Page, selectors []string, timeout time.Duration) (string, error) {
	if len(selectors) == 0 {
		return "", ErrNoneResolved
	}

	type result struct {
		selector string
		err      error
	}

	// buffered so losers never block after the winner has returned
	results := make(chan result, len(selectors))
	for _, sel := range selectors {
		go func(sel string) {
			results <- result{selector: sel, err: page.WaitFor(sel, timeout)}
		}(sel)
	}

	var last error
	for range selectors {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-results:
			if r.err == nil {
				return r.selector, nil
			}
			last = r.err
		}
	}

	if !errors.Is(last, fault.ErrWaitExpired) {
		return "", fmt.Errorf("%w: %w", ErrNoneResolved, last)
	}
	return "", ErrNoneResolved
}

// AnyResolves reports whether at least one selector appears within timeout.
func AnyResolves(ctx context.Context, page Page, selectors []string, timeout time.Duration) bool {
	_, err := Race(ctx, page, selectors, timeout)
	return err == nil
}
