// Package api exposes the thin JSON surface used by the plant intranet
// frontend and by sibling services.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/vacation"
)

// HTTPServer serves the JSON API.
type HTTPServer struct {
	svc    *vacation.Service
	db     *db.DB
	log    zerolog.Logger
	server *http.Server
}

// NewHTTPServer wires the routes.
func NewHTTPServer(port int, svc *vacation.Service, database *db.DB, logger zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc: svc,
		db:  database,
		log: logger.With().Str("component", "http_api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/requests", s.handleRequests)
	mux.HandleFunc("/api/requests/", s.handleRequestByID)
	mux.HandleFunc("/api/capacity", s.handleCapacity)
	mux.HandleFunc("/api/preferences", s.handlePreferences)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func parseDateParam(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format; expected YYYY-MM-DD", name)
	}
	return t, nil
}
