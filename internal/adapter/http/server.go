// Package http exposes the service's operational endpoints and a small
// read API over the station metadata store.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/isd-ingest/internal/station"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StationDirectory answers station metadata and quality queries.
type StationDirectory interface {
	Station(ctx context.Context, usafID string) (station.Station, error)
	QualityReport(ctx context.Context, usafID string, year int) ([]station.FileCount, error)
}

// Server exposes health, readiness, metrics, and station lookup routes.
type Server struct {
	httpServer *http.Server
	directory  StationDirectory
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /stations routes.
func NewServer(addr string, ready ReadinessChecker, directory StationDirectory, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		directory: directory,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /stations/{id}", s.handleStation)
	mux.HandleFunc("GET /stations/{id}/quality", s.handleQuality)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	st, err := s.directory.Station(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		var err error
		if year, err = strconv.Atoi(y); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be an integer"})
			return
		}
	}

	report, err := s.directory.QualityReport(r.Context(), r.PathValue("id"), year)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	if report == nil {
		report = []station.FileCount{}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, station.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "station not found"})
		return
	}
	s.logger.Error("station lookup failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
