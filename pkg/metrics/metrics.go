// Package metrics exposes the run's counters and state to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
)

var (
	// Events mirrors every counter increment
	Events = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enroller_events_total",
			Help: "Total number of counted run events",
		},
		[]string{"counter"},
	)

	// StateTransitions counts entries into each orchestrator state
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enroller_state_transitions_total",
			Help: "Total number of entries into each state",
		},
		[]string{"state"},
	)

	// CurrentState is 1 for the state the orchestrator is in and 0 otherwise
	CurrentState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "enroller_state",
			Help: "Current orchestrator state",
		},
		[]string{"state"},
	)

	// ClassifiedErrors counts failures by kind
	ClassifiedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enroller_classified_errors_total",
			Help: "Total number of classified failures",
		},
		[]string{"kind"},
	)

	// PollLatency tracks how long an availability poll takes
	PollLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enroller_poll_latency_seconds",
			Help:    "Availability poll latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"result"},
	)
)

// RecordEvent mirrors one counter increment.
func RecordEvent(f counters.Field) {
	Events.WithLabelValues(string(f)).Inc()
}

// RecordTransition counts the entry into state and makes it the current one.
// states lists every state so the others can be reset.
func RecordTransition(state string, states []string) {
	StateTransitions.WithLabelValues(state).Inc()
	for _, s := range states {
		if s == state {
			CurrentState.WithLabelValues(s).Set(1)
		} else {
			CurrentState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordClassified counts one classified failure.
func RecordClassified(kind fault.Kind) {
	ClassifiedErrors.WithLabelValues(string(kind)).Inc()
}

// RecordPoll observes one availability poll.
func RecordPoll(d time.Duration, result string) {
	PollLatency.WithLabelValues(result).Observe(d.Seconds())
}
