package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/load-balancer/internal/metrics"
	"evgrid/backend/services/load-balancer/internal/registry"
)

const codeAlreadyRegistered = "already_registered"

type substationRequest struct {
	SubstationURL string `json:"substation_url"`
}

// SubstationHandlers administers registry membership.
type SubstationHandlers struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSubstationHandlers returns handler set.
func NewSubstationHandlers(reg *registry.Registry, m *metrics.Metrics, logger *zap.Logger) *SubstationHandlers {
	return &SubstationHandlers{registry: reg, metrics: m, logger: logger}
}

// List handles GET /substations.
func (h *SubstationHandlers) List(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"substations": registry.Views(h.registry.Entries()),
	})
}

// Add handles POST /substations.
func (h *SubstationHandlers) Add(w http.ResponseWriter, r *http.Request) {
	var req substationRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}
	endpoint, err := registry.Normalize(req.SubstationURL)
	if err != nil {
		httpserver.WriteGridError(w, err)
		return
	}
	if !h.registry.Add(endpoint) {
		httpserver.WriteError(w, http.StatusConflict, codeAlreadyRegistered, "Substation already exists")
		return
	}
	h.logger.Info("added substation", zap.String("substation", endpoint))
	httpserver.WriteJSON(w, http.StatusOK, map[string]string{
		"status":         "added",
		"substation_url": endpoint,
	})
}

// Remove handles DELETE /substations?substation_url=...
func (h *SubstationHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	endpoint, err := registry.Normalize(r.URL.Query().Get("substation_url"))
	if err != nil {
		httpserver.WriteGridError(w, err)
		return
	}
	if !h.registry.Remove(endpoint) {
		httpserver.WriteError(w, http.StatusNotFound, grid.CodeNotFound, "Substation not found")
		return
	}
	h.metrics.Forget(endpoint)
	h.logger.Info("removed substation", zap.String("substation", endpoint))
	httpserver.WriteJSON(w, http.StatusOK, map[string]string{
		"status":         "removed",
		"substation_url": endpoint,
	})
}
