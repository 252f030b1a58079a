package registerer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/browser"
	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/fault"
	"github.com/entrhq/enroller/pkg/pause"
)

type harness struct {
	availability *fakeAvailability
	portal       *fakePortal
	store        *fakeStore
	probe        *fakeProbe
	sleeper      *fakeSleeper

	settings Settings
	states   []State

	// stopAt cancels the run on the nth entry into a state
	stopAt    State
	stopAfter int
	entries   map[State]int
	cancel    context.CancelFunc
}

func newHarness() *harness {
	return &harness{
		availability: newFakeAvailability(),
		portal:       newFakePortal(),
		store:        &fakeStore{},
		probe:        &fakeProbe{},
		sleeper:      &fakeSleeper{},
		settings: Settings{
			Credentials: config.Credentials{Username: "student", Password: "secret"},
			Target:      config.Target{Term: "202509", TermLabel: "Fall", CourseID: "1234"},
			Timing: config.Timing{
				NavigationMs:        3000,
				InterAttemptSec:     30,
				InterErrorMin:       5,
				InterPollSec:        30,
				ToleratedErrors:     10,
				MaxAttemptsPerLogin: 5,
			},
		},
		entries: make(map[State]int),
	}
}

// stopOn cancels the run when state is entered for the nth time.
func (h *harness) stopOn(state State, nth int) {
	h.stopAt = state
	h.stopAfter = nth
}

func (h *harness) run(t *testing.T) (*Orchestrator, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.cancel = cancel

	o, err := New(h.settings, Deps{
		Availability: h.availability,
		Portal:       h.portal,
		Artifacts:    h.store,
		Probe:        h.probe,
		Sleeper:      h.sleeper,
	}, WithObserver(func(s State) {
		h.states = append(h.states, s)
		h.entries[s]++
		if h.stopAfter > 0 && s == h.stopAt && h.entries[s] == h.stopAfter {
			cancel()
		}
	}), WithClock(func() time.Time {
		return time.Date(2025, time.August, 4, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	return o, o.Run(ctx)
}

// assertCleanup checks that every opened session was closed exactly once and
// that no service ever held two sessions.
func (h *harness) assertCleanup(t *testing.T) {
	t.Helper()
	for _, s := range []*fakeSession{&h.availability.fakeSession, &h.portal.fakeSession} {
		assert.False(t, s.overlap, "%s opened a second session", s.name)
		assert.Equal(t, s.opens, s.closes, "%s opens vs closes", s.name)
		assert.False(t, s.open, "%s left open", s.name)
	}
}

func TestRejectedTwiceThenRegistered(t *testing.T) {
	h := newHarness()
	h.availability.seats = []bool{true}
	h.portal.submits = []submitResult{{ok: false}, {ok: false}, {ok: true}}

	o, err := h.run(t)
	require.NoError(t, err)

	c := o.Counters()
	assert.Equal(t, 3, c.Attempts)
	assert.Equal(t, 1, c.Logins)
	assert.Equal(t, 1, c.Checks)
	assert.Equal(t, 2, c.Successes)
	assert.Equal(t, 0, c.Errors)
	assert.Equal(t, StateSuccess, o.Snapshot().State)

	var withCourse []loggedRecord
	for _, r := range h.store.recordsOf(artifact.KindSuccess) {
		if r.payload.CourseID != "" {
			withCourse = append(withCourse, r)
		}
	}
	require.Len(t, withCourse, 1)
	assert.Equal(t, "1234", withCourse[0].payload.CourseID)
	assert.Equal(t, "portal", withCourse[0].payload.Service)
	assert.Equal(t, 2, withCourse[0].seq)
	assert.Equal(t, []string{"success2.pdf"}, withCourse[0].payload.Files)
	assert.Empty(t, h.store.recordsOf(artifact.KindError))

	assert.Equal(t, 2, h.sleeper.count(pause.Second), "one pause after each rejection")
	assert.Equal(t, h.settings.Credentials, h.portal.lastCreds)
	h.assertCleanup(t)
}

func TestConnectivityDropsWhilePolling(t *testing.T) {
	h := newHarness()
	// up at start, up after polls 1 and 2, down after poll 3
	h.probe.results = []bool{true, true, true, false}
	h.stopOn(StateCheckConnectivity, 2)

	_, err := h.run(t)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3, h.availability.hasCalls)
	assert.Equal(t, []State{StateCheckConnectivity, StatePollAvailability, StateCheckConnectivity}, h.states)
	assert.Zero(t, h.portal.loginCalls)
	assert.Zero(t, h.portal.submitCalls)
	assert.Empty(t, h.store.records)
	h.assertCleanup(t)
}

func TestLoggedOutDuringAttempt(t *testing.T) {
	h := newHarness()
	h.availability.seats = []bool{true}
	h.portal.submits = []submitResult{{err: errors.New("execution context was destroyed")}}
	h.portal.loggedOut = true
	h.stopOn(StateCheckConnectivity, 2)

	o, err := h.run(t)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, h.portal.detectCalls)
	assert.Empty(t, h.store.recordsOf(artifact.KindError), "logout leaves no error artifact")
	assert.Zero(t, o.Counters().Errors)
	assert.Equal(t, StateHandleError, h.states[len(h.states)-2])
	assert.Equal(t, StateCheckConnectivity, h.states[len(h.states)-1])
	assert.Equal(t, 1, h.sleeper.count(pause.Minute))
	h.assertCleanup(t)
}

func TestInvalidCredentialsNotRetried(t *testing.T) {
	h := newHarness()
	h.availability.seats = []bool{true}
	h.portal.loginErr = fmt.Errorf("login as student: %w", fault.ErrCredentialsRejected)

	o, err := h.run(t)
	require.Error(t, err)

	fe, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.KindInvalidCredentials, fe.Kind)
	assert.True(t, fe.Fatal())

	assert.Equal(t, 1, h.portal.loginCalls)
	assert.Zero(t, h.portal.detectCalls)
	assert.Zero(t, o.Counters().Logins)
	assert.Equal(t, StateFatal, o.Snapshot().State)

	errs := h.store.recordsOf(artifact.KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].seq)
	assert.Contains(t, errs[0].payload.Stack, "credentials rejected")
	assert.Zero(t, o.Counters().Errors, "fatal kinds do not consume the budget")
	h.assertCleanup(t)
}

func TestErrorBudget(t *testing.T) {
	h := newHarness()
	h.settings.Timing.ToleratedErrors = 2
	h.availability.gotoErr = errors.New("unexpected page layout")

	o, err := h.run(t)
	require.Error(t, err)

	fe, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.KindBudgetExceeded, fe.Kind)
	assert.ErrorIs(t, err, h.availability.gotoErr)

	assert.Equal(t, 3, o.Counters().Errors)
	assert.Equal(t, 2, h.sleeper.count(pause.Minute), "pause only for failures within budget")

	errs := h.store.recordsOf(artifact.KindError)
	require.Len(t, errs, 3)
	for i, r := range errs {
		assert.Equal(t, i+1, r.seq)
		assert.Equal(t, "availability", r.payload.Service)
	}
	assert.Len(t, h.store.saves, 3)
	assert.Equal(t, 3, h.availability.opens)
	h.assertCleanup(t)
}

func TestRecoverableFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantProbe int
	}{
		{
			name: "traverse wait expires",
			setup: func(h *harness) {
				h.availability.seats = []bool{true}
				h.portal.traverseErr = fmt.Errorf("wait for #term_id failed: %w", fault.ErrWaitExpired)
			},
			wantProbe: 1,
		},
		{
			name: "login page slow",
			setup: func(h *harness) {
				h.availability.seats = []bool{true}
				h.portal.loginErr = fmt.Errorf("wait for menu failed: %w", fault.ErrWaitExpired)
			},
			wantProbe: 0,
		},
		{
			name: "availability poll times out",
			setup: func(h *harness) {
				h.availability.seatErr = fmt.Errorf("wait for row failed: %w", fault.ErrWaitExpired)
			},
			wantProbe: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)
			h.stopOn(StateCheckConnectivity, 2)

			o, err := h.run(t)
			require.ErrorIs(t, err, context.Canceled)

			assert.Equal(t, tt.wantProbe, h.portal.detectCalls)
			assert.Zero(t, o.Counters().Errors)
			assert.Empty(t, h.store.recordsOf(artifact.KindError))
			assert.Contains(t, h.states, StateHandleError)
			assert.NotContains(t, h.states, StateFatal)
			h.assertCleanup(t)
		})
	}
}

func TestFatalPortalSignals(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind fault.Kind
	}{
		{
			name:     "registration limit banner",
			err:      fmt.Errorf("%w: %v", fault.ErrWindowExhausted, fmt.Errorf("wait for #crn_id1 failed: %w", fault.ErrWaitExpired)),
			wantKind: fault.KindWindowExhausted,
		},
		{
			name:     "no submit control",
			err:      fmt.Errorf("%w: %v", fault.ErrNoSubmitControl, browser.ErrNoneResolved),
			wantKind: fault.KindDriverUnrecoverable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.availability.seats = []bool{true}
			h.portal.submits = []submitResult{{err: tt.err}}

			o, err := h.run(t)
			fe, ok := fault.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, 1, h.portal.detectCalls)
			errs := h.store.recordsOf(artifact.KindError)
			require.Len(t, errs, 1)
			assert.Equal(t, "portal", errs[0].payload.Service)
			assert.Equal(t, StateFatal, o.Snapshot().State)
			h.assertCleanup(t)
		})
	}
}

func TestAttemptSubLimit(t *testing.T) {
	h := newHarness()
	h.settings.Timing.MaxAttemptsPerLogin = 3
	h.availability.seats = []bool{true}

	o, err := h.run(t)
	fe, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.KindWindowExhausted, fe.Kind)

	assert.Equal(t, 3, o.Counters().Attempts)
	assert.Equal(t, 3, h.portal.submitCalls)
	assert.Equal(t, 2, h.sleeper.count(pause.Second))
	h.assertCleanup(t)
}

func TestUnlimitedAttempts(t *testing.T) {
	h := newHarness()
	h.settings.Timing.MaxAttemptsPerLogin = 0
	h.availability.seats = []bool{true}
	for i := 0; i < 7; i++ {
		h.portal.submits = append(h.portal.submits, submitResult{ok: false})
	}
	h.portal.submits = append(h.portal.submits, submitResult{ok: true})

	o, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, 8, o.Counters().Attempts)
	h.assertCleanup(t)
}

func TestWaitsForConnectivity(t *testing.T) {
	h := newHarness()
	h.probe.results = []bool{false, false, true}
	h.availability.seats = []bool{true}
	h.portal.submits = []submitResult{{ok: true}}

	_, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, 2, h.sleeper.count(pause.Minute))
	assert.Equal(t, []State{
		StateCheckConnectivity, StateCheckConnectivity, StateCheckConnectivity,
		StatePollAvailability, StateLogin, StateTraverse, StateAttemptRegister, StateSuccess,
	}, h.states)
	h.assertCleanup(t)
}

func TestStopDuringPollPause(t *testing.T) {
	h := newHarness()
	h.sleeper.onSleep = func(int, pause.Unit) {
		h.cancel()
	}

	_, err := h.run(t)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, h.availability.hasCalls)
	assert.Equal(t, 1, h.availability.opens)
	h.assertCleanup(t)
}

func TestStopBeforeStart(t *testing.T) {
	h := newHarness()
	h.stopOn(StateCheckConnectivity, 1)

	_, err := h.run(t)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.probe.calls, "stop is honoured at the next state boundary")
}

func TestArtifactFailuresDoNotChangeFlow(t *testing.T) {
	h := newHarness()
	h.store.err = errors.New("disk full")
	h.availability.seats = []bool{true}
	h.portal.submits = []submitResult{{ok: true}}

	o, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, o.Snapshot().State)
	h.assertCleanup(t)
}

func TestSnapshotDuringRun(t *testing.T) {
	h := newHarness()
	h.availability.seats = []bool{true}
	h.portal.submits = []submitResult{{ok: true}}

	var o *Orchestrator
	var seen []Snapshot
	o, err := New(h.settings, Deps{
		Availability: h.availability,
		Portal:       h.portal,
		Artifacts:    h.store,
		Probe:        h.probe,
		Sleeper:      h.sleeper,
	}, WithObserver(func(State) {
		seen = append(seen, o.Snapshot())
	}))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, o.Snapshot().State)

	require.NoError(t, o.Run(context.Background()))

	require.NotEmpty(t, seen)
	assert.Equal(t, StateCheckConnectivity, seen[0].State)
	last := seen[len(seen)-1]
	assert.Equal(t, StateSuccess, last.State)
	assert.Equal(t, 1, last.Counters.Attempts)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Settings{}, Deps{})
	assert.Error(t, err)

	_, err = New(Settings{}, Deps{
		Availability: newFakeAvailability(),
		Portal:       newFakePortal(),
		Artifacts:    &fakeStore{},
	})
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "PollAvailability", StatePollAvailability.String())
	assert.Equal(t, "Unknown", State(42).String())
	assert.True(t, StateFatal.Terminal())
	assert.False(t, StateHandleError.Terminal())
}
