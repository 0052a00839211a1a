// Package handlers exposes the query surface consumed by the
// dashboard: alert listing, sweep triggering, and CSV export.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wardwatch-systems/wardwatch/internal/analyzer"
	"github.com/wardwatch-systems/wardwatch/internal/export"
	"github.com/wardwatch-systems/wardwatch/internal/httputil"
	"github.com/wardwatch-systems/wardwatch/internal/ingest"
	"github.com/wardwatch-systems/wardwatch/internal/logging"
	"github.com/wardwatch-systems/wardwatch/internal/models"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
)

// Handler holds the pipeline collaborators behind the HTTP surface.
type Handler struct {
	analyzer *analyzer.Analyzer
	alerts   repository.Repository
	systems  registry.Registry
	adapter  ingest.Adapter
	logger   *logging.Logger
}

// New creates the handler set.
func New(a *analyzer.Analyzer, alerts repository.Repository, systems registry.Registry, adapter ingest.Adapter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		analyzer: a,
		alerts:   alerts,
		systems:  systems,
		adapter:  adapter,
		logger:   logger,
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListAlerts handles GET /api/v1/alerts with optional severity,
// system_id, since, and limit query parameters.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAlertFilter(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.alerts.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list alerts", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert handles POST /api/v1/alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.alerts.Resolve(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to resolve alert", "alert_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": "resolved"})
}

// ExportAlerts handles GET /api/v1/alerts/export: the same filters as
// ListAlerts, rendered as a CSV download.
func (h *Handler) ExportAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAlertFilter(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.alerts.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list alerts for export", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to export alerts")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="threat_alerts.csv"`)
	if err := export.Alerts(w, alerts); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write alert export", "error", err)
	}
}

// TriggerAnalyze handles POST /api/v1/analyze. With a system_id query
// parameter it analyzes one system; without, it sweeps all of them.
func (h *Handler) TriggerAnalyze(w http.ResponseWriter, r *http.Request) {
	systemID := r.URL.Query().Get("system_id")

	if systemID != "" {
		alerts, err := h.analyzer.Analyze(r.Context(), systemID)
		if err != nil {
			if errors.Is(err, registry.ErrSystemNotFound) {
				httputil.WriteError(w, http.StatusNotFound, "system not found")
				return
			}
			status := http.StatusBadGateway
			if ingest.KindOf(err) == "" {
				status = http.StatusInternalServerError
			}
			httputil.WriteError(w, status, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"alerts": alerts,
			"count":  len(alerts),
		})
		return
	}

	result, err := h.analyzer.AnalyzeAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sweep failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ListSystems handles GET /api/v1/systems.
func (h *Handler) ListSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := h.systems.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list systems", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list systems")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"systems": systems,
		"count":   len(systems),
	})
}

// RegisterSystemRequest is the body of POST /api/v1/systems.
type RegisterSystemRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Credential string `json:"credential"`
	Type       string `json:"type"`
}

// RegisterSystem handles POST /api/v1/systems.
func (h *Handler) RegisterSystem(w http.ResponseWriter, r *http.Request) {
	var req RegisterSystemRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Address == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and address are required")
		return
	}

	desc := &models.SystemDescriptor{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Address:    req.Address,
		Credential: req.Credential,
		Type:       req.Type,
		Status:     models.SystemStatusInactive,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.systems.Register(r.Context(), desc); err != nil {
		if errors.Is(err, registry.ErrSystemExists) {
			httputil.WriteError(w, http.StatusConflict, "system already registered")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to register system", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to register system")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, desc)
}

// ExportSystemLogs handles GET /api/v1/systems/{id}/logs/export: it
// pulls one fresh page from the source and renders it as CSV.
func (h *Handler) ExportSystemLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	system, err := h.systems.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrSystemNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "system not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get system", "system_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to get system")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	records, err := h.adapter.Fetch(r.Context(), system, ingest.FetchOptions{Limit: limit})
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="activity_logs.csv"`)
	if err := export.Records(w, system.Name, records); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write log export", "error", err)
	}
}

func parseAlertFilter(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	filter := repository.Filter{
		Severity: q.Get("severity"),
		SystemID: q.Get("system_id"),
	}

	if filter.Severity != "" && !models.IsValidSeverity(filter.Severity) {
		return repository.Filter{}, fmt.Errorf("invalid severity: %s", filter.Severity)
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("invalid since timestamp: %s", raw)
		}
		filter.Since = since
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return repository.Filter{}, fmt.Errorf("invalid limit: %s", raw)
		}
		filter.Limit = limit
	}

	return filter, nil
}
