package registerer

import (
	"context"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
	"github.com/entrhq/enroller/pkg/metrics"
	"github.com/entrhq/enroller/pkg/pause"
)

func (o *Orchestrator) handleError(ctx, remote context.Context) (State, error) {
	f := o.pending
	o.pending = failure{}

	loggedOut := false
	if f.probeLogout {
		loggedOut = o.deps.Portal.DetectLoggedOut(remote)
	}

	classified := fault.Classify(f.err, loggedOut)

	// sequence of the error capture; only unclassified failures consume one
	var seq int
	if classified.Kind == fault.KindUnclassified {
		seq = o.inc(counters.FieldErrors)
		classified = fault.EnforceBudget(classified, seq, o.settings.Timing.ToleratedErrors)
	} else {
		seq = o.Counters().Errors + 1
	}
	metrics.RecordClassified(classified.Kind)

	wait := o.settings.Timing.InterErrorMin
	log := o.logger.With("service", f.service, "kind", classified.Kind, "class", classified.Kind.Class().String())

	switch {
	case classified.Fatal():
		log.Error("fatal failure", "error", classified.Detail())
		o.deps.Reporter.Errorf("%s: %s", f.service, classified.Message)
		o.persistError(remote, seq, f.service, classified)
		o.releaseSessions()
		o.fatal = classified
		return StateFatal, nil

	case classified.Recoverable():
		log.Warn("recoverable failure", "error", classified.Detail(), "retry_in", pause.Describe(wait, pause.Minute))
		o.deps.Reporter.Warningf("%s: %s, retrying in %s", f.service, classified.Message, pause.Describe(wait, pause.Minute))

	default:
		log.Warn("unexpected failure", "error", classified.Detail(),
			"errors", seq, "tolerated", o.settings.Timing.ToleratedErrors)
		o.deps.Reporter.Errorf("%s: %s (%d/%d tolerated)", f.service, classified.Message, seq, o.settings.Timing.ToleratedErrors)
		o.persistError(remote, seq, f.service, classified)
	}

	o.releaseSessions()
	if err := o.sleep(ctx, wait, pause.Minute); err != nil {
		return StateHandleError, err
	}
	return StateCheckConnectivity, nil
}

func (o *Orchestrator) persistError(remote context.Context, seq int, service string, e *fault.Error) {
	o.persist(remote, artifact.KindError, seq, service, artifact.Payload{
		Stack:   e.Detail(),
		Service: service,
	})
}

// persist captures the page of service and records it. Failures are logged
// and never change the course of the run.
func (o *Orchestrator) persist(remote context.Context, kind artifact.Kind, seq int, service string, payload artifact.Payload) {
	log := o.logger.With("kind", string(kind), "seq", seq, "service", service)

	capture, err := o.source(service).Capture(remote)
	if err != nil {
		log.Warn("page capture incomplete", "error", err)
	}

	if !capture.Empty() {
		files, err := o.deps.Artifacts.SaveCapture(kind, seq, capture)
		if err != nil {
			log.Warn("failed to save capture", "error", err)
		}
		log.Debug("capture saved", "files", files)
		payload.Files = files
	}

	if err := o.deps.Artifacts.AppendLogRecord(kind, seq, o.now(), payload); err != nil {
		log.Warn("failed to append log record", "error", err)
	}
}

func (o *Orchestrator) source(service string) session {
	if service == serviceAvailability {
		return o.deps.Availability
	}
	return o.deps.Portal
}

func (o *Orchestrator) closeSession(service string, s session) {
	if !s.HasSession() {
		return
	}
	if err := s.CloseSession(); err != nil {
		o.logger.Warn("failed to close session", "service", service, "error", err)
	}
}

// releaseSessions closes whichever sessions are held.
func (o *Orchestrator) releaseSessions() {
	o.closeSession(serviceAvailability, o.deps.Availability)
	o.closeSession(servicePortal, o.deps.Portal)
}
