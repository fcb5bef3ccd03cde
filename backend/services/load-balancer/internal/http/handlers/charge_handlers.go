package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/httpserver"
)

// Router forwards a charge request to a substation.
type Router interface {
	Route(ctx context.Context, evID string, requestedKW float64) (grid.SessionDescriptor, error)
}

// ChargeHandlers serves POST /charge.
type ChargeHandlers struct {
	router Router
	logger *zap.Logger
}

// NewChargeHandlers returns handler set.
func NewChargeHandlers(router Router, logger *zap.Logger) *ChargeHandlers {
	return &ChargeHandlers{router: router, logger: logger}
}

// Route handles POST /charge.
func (h *ChargeHandlers) Route(w http.ResponseWriter, r *http.Request) {
	var req grid.ChargeRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}

	desc, err := h.router.Route(r.Context(), req.EVID, req.KW())
	if err != nil {
		if grid.Code(err) == grid.CodeInternal {
			h.logger.Error("routing charge request failed", zap.String("ev_id", req.EVID), zap.Error(err))
		}
		httpserver.WriteGridError(w, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, desc)
}
