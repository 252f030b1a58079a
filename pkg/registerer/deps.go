package registerer

import (
	"context"
	"time"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/pause"
)

// Service names used to tag failures, captures and log lines.
const (
	serviceAvailability = "availability"
	servicePortal       = "portal"
)

// session is the lifecycle shared by both remote services.
type session interface {
	OpenSession(ctx context.Context) error
	CloseSession() error
	HasSession() bool
	Capture(ctx context.Context) (artifact.Capture, error)
}

// AvailabilityService is the seat availability adapter.
type AvailabilityService interface {
	session
	GotoHome(ctx context.Context) error
	SelectTerm(ctx context.Context, term string) error
	SelectCourse(ctx context.Context, courseID string) error
	HasAvailableSeat(ctx context.Context) (bool, error)
}

// PortalService is the registration portal adapter.
type PortalService interface {
	session
	Login(ctx context.Context, creds config.Credentials) error
	GotoRegistrationArea(ctx context.Context, term string) error
	SubmitRegistration(ctx context.Context, courseID string) (bool, error)
	DetectLoggedOut(ctx context.Context) bool
}

// ArtifactStore persists captures and their journal records.
type ArtifactStore interface {
	SaveCapture(kind artifact.Kind, seq int, c artifact.Capture) ([]string, error)
	AppendLogRecord(kind artifact.Kind, seq int, ts time.Time, p artifact.Payload) error
}

// ConnectivityProbe reports whether the network is usable.
type ConnectivityProbe interface {
	Reachable(ctx context.Context) bool
}

// Reporter is the operator console.
type Reporter interface {
	Separator()
	Progress(c counters.Counters)
	Infof(format string, args ...interface{})
	Successf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Deps are the collaborators of an Orchestrator. Reporter and Sleeper may be
// nil; every other field is required.
type Deps struct {
	Availability AvailabilityService
	Portal       PortalService
	Artifacts    ArtifactStore
	Probe        ConnectivityProbe
	Sleeper      pause.Sleeper
	Reporter     Reporter
}

// Settings are the read-only inputs of a run.
type Settings struct {
	Credentials config.Credentials
	Target      config.Target
	Timing      config.Timing
}

type nopReporter struct{}

func (nopReporter) Separator()                      {}
func (nopReporter) Progress(counters.Counters)      {}
func (nopReporter) Infof(string, ...interface{})    {}
func (nopReporter) Successf(string, ...interface{}) {}
func (nopReporter) Warningf(string, ...interface{}) {}
func (nopReporter) Errorf(string, ...interface{})   {}
