// Package api exposes the analytics service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trackerql/internal/middleware"
	"trackerql/internal/planstore"
	"trackerql/internal/service/analytics"
)

const maxRequestBody = 1 << 20

// AnalyticsService is the part of analytics.Service the handlers use.
type AnalyticsService interface {
	Query(ctx context.Context, req analytics.QueryRequest) (*analytics.Grid, error)
	ExplainPlans(key string) []planstore.ExecutionPlan
}

// Pinger reports whether a backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the analytics endpoints.
type Handler struct {
	analytics AnalyticsService
	pingers   map[string]Pinger
	logger    *slog.Logger
}

// NewHandler creates a Handler. pingers are checked by /healthz, keyed by
// the name reported on failure.
func NewHandler(svc AnalyticsService, pingers map[string]Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analytics: svc, pingers: pingers, logger: logger}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryTrackedEntities handles POST /api/analytics/trackedEntities/query.
func (h *Handler) QueryTrackedEntities(w http.ResponseWriter, r *http.Request) {
	var req analytics.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(w, r, http.StatusBadRequest, errors.New("request body is required"))
			return
		}
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	grid, err := h.analytics.Query(r.Context(), req)
	if err != nil {
		h.writeError(w, r, httpStatusFromDomainError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// ExplainPlans handles GET /api/analytics/explain/{key}.
func (h *Handler) ExplainPlans(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	plans := h.analytics.ExplainPlans(key)
	if len(plans) == 0 {
		h.writeError(w, r, http.StatusNotFound, errors.New("no execution plans for key "+key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "plans": plans})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	for name, p := range h.pingers {
		if err := p.PingContext(r.Context()); err != nil {
			h.logger.Warn("health check failed", "component", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "component": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
