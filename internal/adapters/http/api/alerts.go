package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/capmap/internal/adapters/repository"
	service "github.com/okian/capmap/internal/app"
	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/logger"
)

// AlertsHandler handles alert submission and reads.
type AlertsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps Dependencies, maxBodyBytes int64) *AlertsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &AlertsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePostAlert handles POST /api/alert requests.
func (h *AlertsHandler) HandlePostAlert(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_alert"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var raw model.RawAlert
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), raw)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", WrapKind(op, ErrTimeout, err))
		return
	default:
		logger.Get().Error(r.Context(), "ingest failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Status: "ok", Count: res.Count})
}

// HandleListAlerts handles GET /api/alerts requests.
// ?order=desc returns the newest alert first.
func (h *AlertsHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_alerts"

	alerts := h.deps.Alerts(r.Context())
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
			alerts[i], alerts[j] = alerts[j], alerts[i]
		}
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadOrder))
		return
	}
	if alerts == nil {
		alerts = []model.EnrichedAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleGetAlert handles GET /api/alerts/{id} requests.
func (h *AlertsHandler) HandleGetAlert(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_alert"

	id := mux.Vars(r)["id"]
	alert, err := h.deps.Alert(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
