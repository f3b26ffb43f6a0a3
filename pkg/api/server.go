// Package api is the thin control gateway: it translates inbound HTTP
// requests into lifecycle controller calls and maps results onto status
// codes. All lifecycle semantics live in the controller.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/container-control/pkg/adapter"
	"github.com/psantana5/container-control/pkg/controller"
	"github.com/psantana5/container-control/pkg/logging"
	"github.com/psantana5/container-control/pkg/metrics"
)

// Handler serves the control surface for one lifecycle controller
type Handler struct {
	ctrl     *controller.Controller
	ops      *metrics.Ops
	gatherer promclient.Gatherer
	log      *logging.Logger
}

// NewHandler creates the gateway handler
func NewHandler(ctrl *controller.Controller, ops *metrics.Ops, gatherer promclient.Gatherer, log *logging.Logger) *Handler {
	return &Handler{
		ctrl:     ctrl,
		ops:      ops,
		gatherer: gatherer,
		log:      log,
	}
}

// RegisterRoutes registers the control surface
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/start", h.Start).Methods("POST")
	r.HandleFunc("/api/stop", h.Stop).Methods("POST")
	r.HandleFunc("/api/update", h.Update).Methods("POST")
	r.HandleFunc("/api/metrics", h.Metrics).Methods("GET")
	r.HandleFunc("/api/health", h.Health).Methods("GET")
	r.Handle("/metrics", http.HandlerFunc(h.Exposition)).Methods("GET")
}

// Start handles POST /api/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		h.ops.Record("start", "bad_request")
		return
	}

	if err := h.ctrl.Start(r.Context(), payload); err != nil {
		h.ops.Record("start", "error")
		h.writeControlError(w, err)
		return
	}

	h.ops.Record("start", "ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "workload started",
		"state":   h.ctrl.State(),
	})
}

// Stop handles POST /api/stop. Stop is idempotent and always succeeds.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Stop(r.Context()); err != nil {
		// The controller forces the stopped state even on adapter errors,
		// so this only logs; the caller still gets success.
		h.log.Error("stop returned error", map[string]interface{}{"error": err.Error()})
	}

	h.ops.Record("stop", "ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "workload stopped",
		"state":   h.ctrl.State(),
	})
}

// Update handles POST /api/update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		h.ops.Record("update", "bad_request")
		return
	}

	if err := h.ctrl.Update(r.Context(), payload); err != nil {
		h.ops.Record("update", "error")
		h.writeControlError(w, err)
		return
	}

	h.ops.Record("update", "ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "update applied"})
}

// Metrics handles GET /api/metrics with the structured snapshot
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, snap.Map())
}

// Exposition handles GET /metrics with the flat text format
func (h *Handler) Exposition(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	w.Header().Set("Content-Type", metrics.ExpositionContentType)
	metrics.WriteExposition(w, snap, h.ctrl.AdapterExposition(), h.gatherer)
}

// Health handles GET /api/health, the liveness probe
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"state":     h.ctrl.State(),
		"timestamp": time.Now().UTC().Format(metrics.TimestampLayout),
	})
}

// writeControlError maps controller errors onto the wire contract
func (h *Handler) writeControlError(w http.ResponseWriter, err error) {
	var vErr *controller.ValidationError
	var aErr *controller.AdapterError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, controller.ErrNotRunning):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, controller.ErrUpdateDeclined):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, controller.ErrBusy):
		writeError(w, http.StatusTooManyRequests, err)
	case errors.As(err, &aErr):
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodePayload(w http.ResponseWriter, r *http.Request) (adapter.Payload, bool) {
	var payload adapter.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return nil, false
	}
	return payload, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}
