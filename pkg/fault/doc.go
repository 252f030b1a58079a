// Package fault is the failure vocabulary shared by the browser adapters and
// the registration orchestrator.
//
// Adapters mark failures with the sentinel signals (ErrWaitExpired,
// ErrCredentialsRejected, ...). The orchestrator turns every raw failure into
// a single *Error with Classify, then runs unclassified ones through
// EnforceBudget so the error limit acts as a circuit breaker:
//
//	e := fault.Classify(err, loggedOut)
//	if e.Kind == fault.KindUnclassified {
//	    counts.Errors++
//	    e = fault.EnforceBudget(e, counts.Errors, limit)
//	}
//	if e.Fatal() {
//	    return e
//	}
package fault
