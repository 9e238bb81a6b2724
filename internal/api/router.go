// Package api provides the HTTP surface of the engine: health and control
// endpoints, alert queries, data export and the websocket upgrade into the
// broadcast hub.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"statarb-engine/internal/orchestrator"
)

// Deps carries what the handlers need.
type Deps struct {
	Orch      *orchestrator.Orchestrator
	StartedAt time.Time
}

// NewRouter sets up the HTTP routes.
func NewRouter(deps Deps) *http.ServeMux {
	h := &handlers{Deps: deps}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("POST /api/settings", h.updateSettings)
	mux.HandleFunc("GET /api/alerts", h.alerts)
	mux.HandleFunc("GET /api/export", h.exportUnified)
	mux.HandleFunc("GET /export/csv", h.exportCSV)
	mux.HandleFunc("GET /export/json", h.exportJSON)
	mux.HandleFunc("GET /export/parquet", h.exportParquet)
	mux.HandleFunc("GET /api/debug/bars", h.debugBars)
	mux.HandleFunc("GET /ws/{topic}", h.websocket)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server wraps the HTTP listener with graceful shutdown.
type Server struct {
	http *http.Server
}

// NewServer creates the API server on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{http: &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}}
}

// Start runs the listener on a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[api] server error: %v", err)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("[api] shutdown error: %v", err)
	}
}
