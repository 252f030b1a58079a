package fault

import (
	"context"
	"errors"
)

// Classify maps a raw failure to exactly one Kind. loggedOut carries the
// result of a logout probe the caller ran before classifying; Classify itself
// never touches the page, the disk or the log.
//
// Rules are checked in order: logged out, already classified, wait expired,
// credentials rejected, window exhausted, driver unrecoverable. Anything else
// is unclassified and must go through EnforceBudget.
func Classify(err error, loggedOut bool) *Error {
	if err == nil {
		err = errors.New("unknown failure")
	}

	if loggedOut {
		return New(KindLoggedOut, "session logged out", err)
	}

	if fe, ok := As(err); ok {
		return fe
	}

	switch {
	case errors.Is(err, ErrWaitExpired), errors.Is(err, context.DeadlineExceeded):
		return New(KindTimeout, "page did not respond in time", err)
	case errors.Is(err, ErrCredentialsRejected):
		return New(KindInvalidCredentials, "portal rejected the credentials", err)
	case errors.Is(err, ErrWindowExhausted):
		return New(KindWindowExhausted, "registration attempts exhausted", err)
	case errors.Is(err, ErrNoSubmitControl), errors.Is(err, ErrDriverUnavailable):
		return New(KindDriverUnrecoverable, "browser cannot continue", err)
	}

	return New(KindUnclassified, "unexpected failure", err)
}

// EnforceBudget escalates an unclassified failure once count has gone past
// limit. count includes e. Other kinds pass through untouched.
func EnforceBudget(e *Error, count, limit int) *Error {
	if e == nil || e.Kind != KindUnclassified {
		return e
	}
	if count > limit {
		return New(KindBudgetExceeded, "error limit reached", e)
	}
	return e
}
