// Package health serves liveness, status and Prometheus metrics over
// HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is a small HTTP server with /health, /status and /metrics.
type Server struct {
	srv      *http.Server
	statusFn func() any
	started  time.Time
	log      zerolog.Logger
}

// NewServer creates the server. statusFn supplies the /status payload and
// may be nil.
func NewServer(addr string, statusFn func() any, log zerolog.Logger) *Server {
	s := &Server{
		statusFn: statusFn,
		started:  time.Now(),
		log:      log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in a goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("health server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("health server failed")
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"time":    time.Now().Format(time.RFC3339),
		"service": "dayhighdaylow",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.statusFn == nil {
		writeJSON(w, map[string]any{"status": "ok"})
		return
	}
	writeJSON(w, s.statusFn())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
