package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/fault"
)

func TestHealth(t *testing.T) {
	snap := Snapshot{State: "PollAvailability", Counters: counters.Counters{Checks: 4}}
	s := NewServer(func() Snapshot { return snap }, "run-42", 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, healthResponse{
		Status:   "ok",
		State:    "PollAvailability",
		RunID:    "run-42",
		Counters: counters.Counters{Checks: 4},
	}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordEvent(counters.FieldChecks)
	s := NewServer(func() Snapshot { return Snapshot{} }, "run-42", 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "enroller_events_total")
}

func TestRecordTransition(t *testing.T) {
	states := []string{"Idle", "Login", "Traverse"}

	RecordTransition("Login", states)
	RecordTransition("Traverse", states)

	assert.Equal(t, float64(0), testutil.ToFloat64(CurrentState.WithLabelValues("Login")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CurrentState.WithLabelValues("Traverse")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(StateTransitions.WithLabelValues("Login")), float64(1))
}

func TestRecordClassified(t *testing.T) {
	before := testutil.ToFloat64(ClassifiedErrors.WithLabelValues(string(fault.KindTimeout)))
	RecordClassified(fault.KindTimeout)
	after := testutil.ToFloat64(ClassifiedErrors.WithLabelValues(string(fault.KindTimeout)))
	assert.Equal(t, before+1, after)
}

func TestRecordPoll(t *testing.T) {
	RecordPoll(300*time.Millisecond, "full")
	assert.Equal(t, 1, testutil.CollectAndCount(PollLatency))
}
