// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/capmap/internal/domain/model"
)

// DefaultMaxBodyBytes caps POST /api/alert bodies when no option is given.
const DefaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest enriches and stores one alert and waits for the result.
	Ingest(ctx context.Context, raw model.RawAlert) (model.Result, error)

	// Read operations expose stored alerts.
	Alerts(ctx context.Context) []model.EnrichedAlert
	Alert(ctx context.Context, id string) (model.EnrichedAlert, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps the size of alert submissions.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxBodyBytes int64

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	alertsHandler    *AlertsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.alertsHandler = NewAlertsHandler(deps, s.maxBodyBytes)
	s.dashboardHandler = newDashboardHandler()
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/api/alert", MetricsMiddleware(s.alertsHandler.HandlePostAlert, "alert")).Methods(http.MethodPost)
	r.HandleFunc("/api/alerts", MetricsMiddleware(s.alertsHandler.HandleListAlerts, "alerts")).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts/{id}", MetricsMiddleware(s.alertsHandler.HandleGetAlert, "alert_by_id")).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/", s.dashboardHandler.HandleRoot).Methods(http.MethodGet)
}

type ackResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
