package handlers

import (
	"net/http"
	"time"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/charge-request-service/internal/service"
)

// StatusHandlers serves status views.
type StatusHandlers struct {
	tracker     *service.Tracker
	balancerURL string
}

// NewStatusHandlers returns handler set.
func NewStatusHandlers(tracker *service.Tracker, balancerURL string) *StatusHandlers {
	return &StatusHandlers{tracker: tracker, balancerURL: balancerURL}
}

// Status handles GET /status.
func (h *StatusHandlers) Status(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":           "charge_request_service",
		"load_balancer_url": h.balancerURL,
		"active_sessions":   h.tracker.Count(),
		"timestamp":         time.Now().UTC(),
	})
}

// Health handles GET /health.
func (h *StatusHandlers) Health() http.HandlerFunc {
	return httpserver.HealthHandler("charge_request_service", func() map[string]interface{} {
		return map[string]interface{}{"timestamp": time.Now().UTC()}
	})
}

// Root handles GET /.
func (h *StatusHandlers) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":     "charge_request_service",
		"description": "Public entry point for EV charging requests",
		"endpoints": map[string]string{
			"health":       "/health",
			"status":       "/status",
			"charge":       "/charge (POST)",
			"sessions":     "/sessions (GET)",
			"stop_session": "/sessions/<session_id> (DELETE)",
			"metrics":      "/metrics",
		},
	})
}
