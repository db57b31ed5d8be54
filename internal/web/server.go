// Package web serves the operational surface: health, Prometheus metrics
// and the latest run's results. The user-facing dashboard lives elsewhere.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/pipeline"
)

// Server exposes pipeline state over HTTP.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger

	mu   sync.RWMutex
	last *pipeline.Result
}

// NewServer creates the ops server listening on addr.
func NewServer(addr string, log zerolog.Logger) *Server {
	s := &Server{log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/run/latest", s.handleLatestRun).Methods(http.MethodGet)
	r.HandleFunc("/api/properties", s.handleProperties).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// SetResult publishes the most recent run.
func (s *Server) SetResult(res pipeline.Result) {
	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("ops server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down ops server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run yet"})
		return
	}
	writeJSON(w, http.StatusOK, last.Stats)
}

func (s *Server) handleProperties(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run yet"})
		return
	}
	writeJSON(w, http.StatusOK, last.Properties)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
