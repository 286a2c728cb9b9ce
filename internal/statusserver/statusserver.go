// Package statusserver exposes a read-only introspection endpoint over a
// long-running simulation. It never mutates simulator state, only reads
// the coordinator's own exported snapshot.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/oslab-sim/schedsim/internal/coordinator"
)

// Source is the subset of *coordinator.Coordinator the status server
// needs. Kept as an interface so the server can be unit-tested against a
// stub without spinning up a real simulation.
type Source interface {
	Snapshot() (tick, busyTicks int, pcbs []coordinator.Snapshot)
	RunID() string
}

type statusResponse struct {
	RunID          string                 `json:"run_id"`
	Tick           int                    `json:"tick"`
	BusyTicks      int                    `json:"busy_ticks"`
	UtilizationEMA float64                `json:"utilization_ema"`
	Processes      []coordinator.Snapshot `json:"processes"`
}

// Server wraps an http.Server rooted at a gorilla/mux router exposing
// GET /status.
type Server struct {
	http *http.Server

	mu  sync.Mutex
	avg *ema
}

// New builds a Server bound to addr, reading from src on each request.
func New(addr string, src Source) *Server {
	s := &Server{avg: newEMA(0.3)}

	r := mux.NewRouter()
	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		tick, busy, pcbs := src.Snapshot()

		instant := 0.0
		if tick > 0 {
			instant = clamp01(float64(busy) / float64(tick))
		}
		s.mu.Lock()
		smoothed := s.avg.next(instant)
		s.mu.Unlock()

		resp := statusResponse{
			RunID:          src.RunID(),
			Tick:           tick,
			BusyTicks:      busy,
			UtilizationEMA: smoothed,
			Processes:      pcbs,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until it errors or is shut down.
// http.ErrServerClosed is swallowed since it signals a clean Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
