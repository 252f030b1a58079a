// Package registerer runs the registration state machine.
//
// # States
//
//	Idle → CheckConnectivity → PollAvailability → Login → Traverse → AttemptRegister → Success
//	                ↑                                                       │
//	                └──────────── HandleError ←─────── (any failure) ──────┘
//	                                   │
//	                                   └──→ Fatal
//
// Availability is polled on the public schedule builder first; the portal is
// only logged into once a seat shows up. Every failure is classified by the
// fault package before anything else happens to it: recoverable failures and
// unclassified failures within the error budget pause and restart from
// CheckConnectivity, everything else ends the run.
//
// # Sessions
//
// Each service holds at most one browser session. Sessions are released when
// a failure is handled, before switching from the availability service to the
// portal and on every return from Run.
//
// # Stopping
//
// Cancelling the context passed to Run is honoured between states and during
// pauses. A call already in flight against a remote service runs to
// completion first.
package registerer
