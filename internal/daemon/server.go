// Package daemon serves health, sync status and metrics for a running
// sync loop.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"lockin/internal/logging"
	"lockin/internal/manager"
	"lockin/internal/metrics"
)

// StatusReporter is the part of the manager the server reads.
type StatusReporter interface {
	Status() (manager.Report, error)
}

// Server provides the daemon HTTP endpoints.
type Server struct {
	status StatusReporter
	router *mux.Router
	server *http.Server
	log    zerolog.Logger
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse represents the sync status response.
type StatusResponse struct {
	Status        manager.Status `json:"status"`
	LastSync      *time.Time     `json:"lastSync,omitempty"`
	LastError     string         `json:"lastError,omitempty"`
	DirtyTasks    int            `json:"dirtyTasks"`
	QueuedIntents int            `json:"queuedIntents"`
}

// NewServer creates a server over the given status source.
func NewServer(status StatusReporter) *Server {
	s := &Server{
		status: status,
		router: mux.NewRouter(),
		log:    logging.WithComponent("daemon"),
	}

	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in the background until Shutdown is
// called. It returns the bound address.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return ln.Addr(), nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.status.Status()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read sync status")
		http.Error(w, "failed to read sync status", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{
		Status:        report.Status,
		LastError:     report.LastError,
		DirtyTasks:    report.DirtyTasks,
		QueuedIntents: report.QueuedIntents,
	}
	if !report.LastSync.IsZero() {
		resp.LastSync = &report.LastSync
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
