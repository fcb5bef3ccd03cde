package handlers

import (
	"net/http"
	"time"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/load-balancer/internal/registry"
)

// PollerState reports the poller's configuration and liveness.
type PollerState interface {
	Interval() time.Duration
	Running() bool
}

// Subscribers counts telemetry stream clients.
type Subscribers interface {
	Count() int
}

// StatusHandlers serves status views.
type StatusHandlers struct {
	registry    *registry.Registry
	poller      PollerState
	subscribers Subscribers
}

// NewStatusHandlers returns handler set.
func NewStatusHandlers(reg *registry.Registry, poller PollerState, subscribers Subscribers) *StatusHandlers {
	return &StatusHandlers{registry: reg, poller: poller, subscribers: subscribers}
}

// Status handles GET /status.
func (h *StatusHandlers) Status(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Entries()
	active := 0
	for _, e := range entries {
		if e.Observed {
			active++
		}
	}
	body := map[string]interface{}{
		"substations":        len(entries),
		"active_substations": active,
		"substation_metrics": registry.Views(entries),
		"polling_interval":   h.poller.Interval().Seconds(),
		"running":            h.poller.Running(),
	}
	if h.subscribers != nil {
		body["stream_subscribers"] = h.subscribers.Count()
	}
	httpserver.WriteJSON(w, http.StatusOK, body)
}

// Health handles GET /health.
func (h *StatusHandlers) Health() http.HandlerFunc {
	return httpserver.HealthHandler("load_balancer", func() map[string]interface{} {
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
		"service": "load_balancer",
		"endpoints": map[string]string{
			"health":      "/health",
			"status":      "/status",
			"substations": "/substations (GET/POST/DELETE)",
			"stream":      "/substations/stream (websocket)",
			"charge":      "/charge (POST)",
			"metrics":     "/metrics",
		},
	})
}
