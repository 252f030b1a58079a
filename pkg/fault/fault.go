package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Signals raised by the session driver and its adapters. They mark a failure
// with what was observed on the page; deciding what the failure means is left
// to Classify.
var (
	// ErrWaitExpired marks a bounded wait on a page element that ran out.
	ErrWaitExpired = errors.New("wait expired")

	// ErrCredentialsRejected marks a login form that is still shown after submitting credentials.
	ErrCredentialsRejected = errors.New("credentials rejected")

	// ErrWindowExhausted marks the portal reporting that no further registration attempts are allowed.
	ErrWindowExhausted = errors.New("registration window exhausted")

	// ErrNoSubmitControl marks a registration form where no submit control could be located.
	ErrNoSubmitControl = errors.New("no submit control located")

	// ErrDriverUnavailable marks a browser that could not be launched or has gone away.
	ErrDriverUnavailable = errors.New("browser driver unavailable")
)

// Class groups kinds by how the orchestrator reacts to them
type Class int

const (
	// ClassUnclassified failures count against the error budget
	ClassUnclassified Class = iota
	// ClassRecoverable failures are absorbed with a pause and a restart
	ClassRecoverable
	// ClassFatal failures end the run
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassFatal:
		return "fatal"
	default:
		return "unclassified"
	}
}

// Kind identifies a classified failure
type Kind string

const (
	KindLoggedOut           Kind = "logged_out"
	KindTimeout             Kind = "timeout"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindWindowExhausted     Kind = "registration_window_exhausted"
	KindBudgetExceeded      Kind = "error_budget_exceeded"
	KindDriverUnrecoverable Kind = "driver_unrecoverable"
	KindUnclassified        Kind = "unclassified"
)

// Class returns the class the kind belongs to.
func (k Kind) Class() Class {
	switch k {
	case KindLoggedOut, KindTimeout:
		return ClassRecoverable
	case KindInvalidCredentials, KindWindowExhausted, KindBudgetExceeded, KindDriverUnrecoverable:
		return ClassFatal
	default:
		return ClassUnclassified
	}
}

// Error is a failure tagged with its Kind. The diagnostic text of the cause is
// folded into Detail when the error is built, so the chain survives even when
// the error is only ever printed.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	detail string
}

// New builds a classified error. cause may be nil.
func New(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Cause: cause}
	e.detail = chain(message, cause)
	return e
}

func chain(message string, cause error) string {
	if cause == nil {
		return message
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\ncaused by: ")
	b.WriteString(cause.Error())
	return b.String()
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind.Class(), e.Kind, e.Message)
}

// Detail returns the message followed by every cause in the chain.
func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the run must stop.
func (e *Error) Fatal() bool {
	return e.Kind.Class() == ClassFatal
}

// Recoverable reports whether the failure is absorbed without touching the error budget.
func (e *Error) Recoverable() bool {
	return e.Kind.Class() == ClassRecoverable
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
