package registerer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/pause"
)

// fakeSession counts opens and closes and notices a second open while one
// session is still held.
type fakeSession struct {
	name    string
	open    bool
	opens   int
	closes  int
	overlap bool
	openErr error
}

func (s *fakeSession) OpenSession(context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	if s.open {
		s.overlap = true
	}
	s.open = true
	s.opens++
	return nil
}

func (s *fakeSession) CloseSession() error {
	s.open = false
	s.closes++
	return nil
}

func (s *fakeSession) HasSession() bool {
	return s.open
}

func (s *fakeSession) Capture(context.Context) (artifact.Capture, error) {
	if !s.open {
		return artifact.Capture{}, errors.New("no session")
	}
	return artifact.Capture{PDF: []byte("%PDF " + s.name), HTML: "<html>" + s.name + "</html>"}, nil
}

type fakeAvailability struct {
	fakeSession

	gotoErr error

	// seats is consumed one poll at a time; an exhausted script reports full
	seats    []bool
	seatErr  error
	hasCalls int
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{fakeSession: fakeSession{name: "availability"}}
}

func (a *fakeAvailability) GotoHome(context.Context) error { return a.gotoErr }

func (a *fakeAvailability) SelectTerm(context.Context, string) error { return nil }

func (a *fakeAvailability) SelectCourse(context.Context, string) error { return nil }

func (a *fakeAvailability) HasAvailableSeat(context.Context) (bool, error) {
	a.hasCalls++
	if a.seatErr != nil {
		return false, a.seatErr
	}
	if len(a.seats) == 0 {
		return false, nil
	}
	open := a.seats[0]
	a.seats = a.seats[1:]
	return open, nil
}

type submitResult struct {
	ok  bool
	err error
}

type fakePortal struct {
	fakeSession

	loginErr    error
	loginCalls  int
	lastCreds   config.Credentials
	traverseErr error

	// submits is consumed one attempt at a time; an exhausted script rejects
	submits     []submitResult
	submitCalls int

	loggedOut   bool
	detectCalls int
}

func newFakePortal() *fakePortal {
	return &fakePortal{fakeSession: fakeSession{name: "portal"}}
}

func (p *fakePortal) Login(_ context.Context, creds config.Credentials) error {
	p.loginCalls++
	p.lastCreds = creds
	return p.loginErr
}

func (p *fakePortal) GotoRegistrationArea(context.Context, string) error { return p.traverseErr }

func (p *fakePortal) SubmitRegistration(context.Context, string) (bool, error) {
	p.submitCalls++
	if len(p.submits) == 0 {
		return false, nil
	}
	r := p.submits[0]
	p.submits = p.submits[1:]
	return r.ok, r.err
}

func (p *fakePortal) DetectLoggedOut(context.Context) bool {
	p.detectCalls++
	return p.loggedOut
}

type savedCapture struct {
	kind    artifact.Kind
	seq     int
	capture artifact.Capture
}

type loggedRecord struct {
	kind    artifact.Kind
	seq     int
	ts      time.Time
	payload artifact.Payload
}

type fakeStore struct {
	saves   []savedCapture
	records []loggedRecord
	err     error
}

func (s *fakeStore) SaveCapture(kind artifact.Kind, seq int, c artifact.Capture) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saves = append(s.saves, savedCapture{kind: kind, seq: seq, capture: c})
	return []string{artifact.FileName(kind, seq, "pdf")}, nil
}

func (s *fakeStore) AppendLogRecord(kind artifact.Kind, seq int, ts time.Time, p artifact.Payload) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, loggedRecord{kind: kind, seq: seq, ts: ts, payload: p})
	return nil
}

func (s *fakeStore) recordsOf(kind artifact.Kind) []loggedRecord {
	var out []loggedRecord
	for _, r := range s.records {
		if r.kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// fakeProbe answers from a script; once exhausted the network is up.
type fakeProbe struct {
	results []bool
	calls   int
}

func (p *fakeProbe) Reachable(context.Context) bool {
	p.calls++
	if len(p.results) == 0 {
		return true
	}
	r := p.results[0]
	p.results = p.results[1:]
	return r
}

type sleepCall struct {
	n    int
	unit pause.Unit
}

type fakeSleeper struct {
	mu      sync.Mutex
	calls   []sleepCall
	onSleep func(n int, unit pause.Unit)
}

func (s *fakeSleeper) Sleep(ctx context.Context, n int, unit pause.Unit) error {
	s.mu.Lock()
	s.calls = append(s.calls, sleepCall{n: n, unit: unit})
	s.mu.Unlock()

	if s.onSleep != nil {
		s.onSleep(n, unit)
	}
	return ctx.Err()
}

func (s *fakeSleeper) count(unit pause.Unit) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.unit == unit {
			n++
		}
	}
	return n
}
