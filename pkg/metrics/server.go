package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/enroller/pkg/counters"
)

// Snapshot is the state of a run at one moment.
type Snapshot struct {
	State    string            `json:"state"`
	Counters counters.Counters `json:"counters"`
}

// SnapshotFunc returns the current run state.
type SnapshotFunc func() Snapshot

// Server provides HTTP endpoints for run status and Prometheus scraping.
type Server struct {
	snapshot SnapshotFunc
	runID    string
	server   *http.Server
}

// NewServer creates a status server on port.
func NewServer(snapshot SnapshotFunc, runID string, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		snapshot: snapshot,
		runID:    runID,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It blocks until Stop.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status   string            `json:"status"`
	State    string            `json:"state"`
	RunID    string            `json:"run_id"`
	Counters counters.Counters `json:"counters"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		State:    snap.State,
		RunID:    s.runID,
		Counters: snap.Counters,
	})
}
