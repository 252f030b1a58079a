package registerer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
	"github.com/entrhq/enroller/pkg/metrics"
	"github.com/entrhq/enroller/pkg/pause"
)

// Snapshot is the observable state of a run.
type Snapshot struct {
	State    State
	Counters counters.Counters
}

// failure is a raw error waiting to be classified in HandleError.
type failure struct {
	service string
	err     error

	// probeLogout asks HandleError to check the portal for a logout first
	probeLogout bool
}

// Orchestrator sequences availability polling, login and registration
// attempts until the course is registered or a fatal failure stops it.
type Orchestrator struct {
	settings Settings
	deps     Deps
	logger   *slog.Logger
	now      func() time.Time
	observer func(State)

	mu       sync.Mutex
	state    State
	counters counters.Counters

	// owned by the goroutine running Run
	pending      failure
	fatal        *fault.Error
	loginAttempt int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithObserver registers a callback run on every state entry, on the
// goroutine running Run.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// New creates an orchestrator in the Idle state.
func New(settings Settings, deps Deps, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Availability == nil:
		return nil, errors.New("availability service is required")
	case deps.Portal == nil:
		return nil, errors.New("portal service is required")
	case deps.Artifacts == nil:
		return nil, errors.New("artifact store is required")
	case deps.Probe == nil:
		return nil, errors.New("connectivity probe is required")
	}
	if deps.Sleeper == nil {
		deps.Sleeper = pause.Clock{}
	}
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}

	o := &Orchestrator{
		settings: settings,
		deps:     deps,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Snapshot returns the current state and counters. It is safe to call while
// Run is in progress.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{State: o.state, Counters: o.counters}
}

// Counters returns a copy of the counters.
func (o *Orchestrator) Counters() counters.Counters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters
}

// Run drives the machine until a terminal state. It returns nil on Success,
// the classified *fault.Error on Fatal and ctx.Err() when stopped. Every
// session is closed before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.releaseSessions()

	// remote calls are never interrupted; ctx is honoured between states
	remote := context.WithoutCancel(ctx)

	o.logger.Info("starting registration run",
		"credentials", o.settings.Credentials,
		"term", o.settings.Target.Term,
		"course_id", o.settings.Target.CourseID,
		"inter_attempt", pause.Describe(o.settings.Timing.InterAttemptSec, pause.Second),
	)

	next := StateCheckConnectivity
	for {
		o.enter(next)

		switch next {
		case StateSuccess:
			o.logger.Info("registration complete", "counters", o.Counters().String())
			return nil
		case StateFatal:
			o.logger.Error("run failed", "kind", o.fatal.Kind, "error", o.fatal.Detail())
			return o.fatal
		}

		if err := ctx.Err(); err != nil {
			o.logger.Info("run stopped", "state", next.String())
			return err
		}

		var err error
		switch next {
		case StateCheckConnectivity:
			next, err = o.checkConnectivity(ctx, remote)
		case StatePollAvailability:
			next, err = o.pollAvailability(ctx, remote)
		case StateLogin:
			next = o.login(remote)
		case StateTraverse:
			next = o.traverse(remote)
		case StateAttemptRegister:
			next, err = o.attemptRegister(ctx, remote)
		case StateHandleError:
			next, err = o.handleError(ctx, remote)
		default:
			return fmt.Errorf("unknown state %d", next)
		}

		if err != nil {
			o.logger.Info("run stopped", "state", o.Snapshot().State.String())
			return err
		}
	}
}

func (o *Orchestrator) enter(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()

	metrics.RecordTransition(s.String(), stateNames)
	o.logger.Debug("state", "state", s.String())
	if o.observer != nil {
		o.observer(s)
	}
}

func (o *Orchestrator) inc(f counters.Field) int {
	o.mu.Lock()
	n := o.counters.Inc(f)
	o.mu.Unlock()

	metrics.RecordEvent(f)
	return n
}

func (o *Orchestrator) sleep(ctx context.Context, n int, unit pause.Unit) error {
	o.logger.Debug("pausing", "for", pause.Describe(n, unit))
	return o.deps.Sleeper.Sleep(ctx, n, unit)
}

// fail hands err to HandleError.
func (o *Orchestrator) fail(service string, err error, probeLogout bool) State {
	o.pending = failure{service: service, err: err, probeLogout: probeLogout}
	return StateHandleError
}

func (o *Orchestrator) checkConnectivity(ctx, remote context.Context) (State, error) {
	o.deps.Reporter.Separator()
	o.deps.Reporter.Progress(o.Counters())

	if o.deps.Probe.Reachable(remote) {
		return StatePollAvailability, nil
	}

	wait := o.settings.Timing.InterErrorMin
	o.logger.Warn("network unreachable", "retry_in", pause.Describe(wait, pause.Minute))
	o.deps.Reporter.Warningf("No internet connection, retrying in %s", pause.Describe(wait, pause.Minute))
	if err := o.sleep(ctx, wait, pause.Minute); err != nil {
		return StateCheckConnectivity, err
	}
	return StateCheckConnectivity, nil
}

func (o *Orchestrator) pollAvailability(ctx, remote context.Context) (State, error) {
	av := o.deps.Availability
	target := o.settings.Target

	if err := av.OpenSession(remote); err != nil {
		return o.fail(serviceAvailability, err, false), nil
	}
	if err := av.GotoHome(remote); err != nil {
		return o.fail(serviceAvailability, err, false), nil
	}
	if err := av.SelectTerm(remote, target.Term); err != nil {
		return o.fail(serviceAvailability, err, false), nil
	}
	if err := av.SelectCourse(remote, target.CourseID); err != nil {
		return o.fail(serviceAvailability, err, false), nil
	}

	for {
		check := o.inc(counters.FieldChecks)
		o.deps.Reporter.Infof("Availability check #%d", check)

		start := time.Now()
		open, err := av.HasAvailableSeat(remote)
		if err != nil {
			metrics.RecordPoll(time.Since(start), "error")
			return o.fail(serviceAvailability, err, false), nil
		}
		if open {
			metrics.RecordPoll(time.Since(start), "open")
			break
		}
		metrics.RecordPoll(time.Since(start), "full")

		o.deps.Reporter.Progress(o.Counters())
		if err := o.sleep(ctx, o.settings.Timing.InterPollSec, pause.Second); err != nil {
			return StatePollAvailability, err
		}

		if !o.deps.Probe.Reachable(remote) {
			o.logger.Warn("network lost while polling")
			o.closeSession(serviceAvailability, av)
			return StateCheckConnectivity, nil
		}
	}

	seq := o.inc(counters.FieldSuccesses)
	o.deps.Reporter.Successf("Seat available in %s", target.CourseID)
	o.logger.Info("seat available", "course_id", target.CourseID, "checks", o.Counters().Checks)
	o.persist(remote, artifact.KindSuccess, seq, serviceAvailability, artifact.Payload{Service: serviceAvailability})

	o.closeSession(serviceAvailability, av)
	return StateLogin, nil
}

func (o *Orchestrator) login(remote context.Context) State {
	portal := o.deps.Portal

	if err := portal.OpenSession(remote); err != nil {
		return o.fail(servicePortal, err, false)
	}
	if err := portal.Login(remote, o.settings.Credentials); err != nil {
		return o.fail(servicePortal, err, false)
	}

	n := o.inc(counters.FieldLogins)
	o.loginAttempt = 0
	o.deps.Reporter.Successf("Logged in (#%d)", n)
	o.logger.Info("logged in", "logins", n)
	return StateTraverse
}

func (o *Orchestrator) traverse(remote context.Context) State {
	if err := o.deps.Portal.GotoRegistrationArea(remote, o.settings.Target.Term); err != nil {
		return o.fail(servicePortal, err, true)
	}
	return StateAttemptRegister
}

func (o *Orchestrator) attemptRegister(ctx, remote context.Context) (State, error) {
	target := o.settings.Target
	timing := o.settings.Timing

	n := o.inc(counters.FieldAttempts)
	o.loginAttempt++
	o.deps.Reporter.Infof("Registration attempt #%d", n)

	registered, err := o.deps.Portal.SubmitRegistration(remote, target.CourseID)
	if err != nil {
		return o.fail(servicePortal, err, true), nil
	}

	if registered {
		seq := o.inc(counters.FieldSuccesses)
		o.deps.Reporter.Successf("Registered to %s", target.CourseID)
		o.persist(remote, artifact.KindSuccess, seq, servicePortal, artifact.Payload{
			CourseID: target.CourseID,
			Service:  servicePortal,
		})
		return StateSuccess, nil
	}

	o.logger.Info("registration rejected", "attempt", n, "this_login", o.loginAttempt)
	o.deps.Reporter.Progress(o.Counters())

	if limit := timing.MaxAttemptsPerLogin; limit > 0 && o.loginAttempt >= limit {
		msg := fmt.Sprintf("registration rejected %d times in one login", o.loginAttempt)
		return o.fail(servicePortal, fault.New(fault.KindWindowExhausted, msg, nil), false), nil
	}

	if err := o.sleep(ctx, timing.InterAttemptSec, pause.Second); err != nil {
		return StateAttemptRegister, err
	}
	return StateAttemptRegister, nil
}
