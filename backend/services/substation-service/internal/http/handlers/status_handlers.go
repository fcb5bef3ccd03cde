package handlers

import (
	"net/http"
	"time"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/substation-service/internal/service"
)

// StatusHandlers serves telemetry and status views.
type StatusHandlers struct {
	substation *service.Substation
}

// NewStatusHandlers returns handler set.
func NewStatusHandlers(substation *service.Substation) *StatusHandlers {
	return &StatusHandlers{substation: substation}
}

// Telemetry handles GET /telemetry.
func (h *StatusHandlers) Telemetry(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, h.substation.Telemetry())
}

// Status handles GET /status.
func (h *StatusHandlers) Status(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, h.substation.Status())
}

// Health handles GET /health.
func (h *StatusHandlers) Health() http.HandlerFunc {
	return httpserver.HealthHandler("substation_service", func() map[string]interface{} {
		return map[string]interface{}{
			"substation_id": h.substation.ID(),
			"timestamp":     time.Now().UTC(),
		}
	})
}

// Root handles GET / with an endpoint listing.
func (h *StatusHandlers) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":       "substation_service",
		"substation_id": h.substation.ID(),
		"endpoints": map[string]string{
			"health":      "/health",
			"status":      "/status",
			"telemetry":   "/telemetry",
			"metrics":     "/metrics",
			"sessions":    "/sessions",
			"charge":      "/charge (POST)",
			"stop_charge": "/charge/<session_id> (DELETE)",
		},
	})
}
