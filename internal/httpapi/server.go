package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/trendgate/trendgate/internal/engine"
)

// DiagnosticsSource exposes the last evaluation result; satisfied by
// *engine.Engine.
type DiagnosticsSource interface {
	LastDiagnostics() *engine.Diagnostics
}

// Server serves operational endpoints: health, last-evaluation
// diagnostics, and Prometheus metrics.
type Server struct {
	srv    *http.Server
	router *mux.Router
	source DiagnosticsSource
	log    zerolog.Logger
}

// NewServer builds the HTTP surface. metricsHandler may be nil, in
// which case /metrics is not registered.
func NewServer(addr string, source DiagnosticsSource, metricsHandler http.Handler, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		source: source,
		log:    log.With().Str("component", "httpapi").Logger(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the handler tree; used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	diag := s.source.LastDiagnostics()
	if diag == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no evaluation recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
