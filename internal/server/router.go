package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardwatch-systems/wardwatch/internal/handlers"
	"github.com/wardwatch-systems/wardwatch/internal/middleware"
)

// NewRouter constructs a ServeMux with the query surface registered
// and the standard middleware chain applied.
func NewRouter(h *handlers.Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Alerts
	mux.HandleFunc("GET /api/v1/alerts", h.ListAlerts)
	mux.HandleFunc("GET /api/v1/alerts/export", h.ExportAlerts)
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", h.ResolveAlert)

	// Analysis triggers
	mux.HandleFunc("POST /api/v1/analyze", h.TriggerAnalyze)

	// Systems
	mux.HandleFunc("GET /api/v1/systems", h.ListSystems)
	mux.HandleFunc("POST /api/v1/systems", h.RegisterSystem)
	mux.HandleFunc("GET /api/v1/systems/{id}/logs/export", h.ExportSystemLogs)

	var handler http.Handler = mux
	if len(allowedOrigins) > 0 {
		handler = middleware.CORS(allowedOrigins)(handler)
	}
	handler = middleware.RequestID(handler)

	return handler
}
