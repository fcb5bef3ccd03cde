package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/charge-request-service/internal/service"
)

// ChargeHandlers exposes the public charge API.
type ChargeHandlers struct {
	tracker *service.Tracker
	logger  *zap.Logger
}

// NewChargeHandlers returns handler set.
func NewChargeHandlers(tracker *service.Tracker, logger *zap.Logger) *ChargeHandlers {
	return &ChargeHandlers{tracker: tracker, logger: logger}
}

// Submit handles POST /charge.
func (h *ChargeHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req grid.ChargeRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}

	desc, err := h.tracker.Submit(r.Context(), req)
	if err != nil {
		if grid.Code(err) == grid.CodeInternal {
			h.logger.Error("charge request failed", zap.String("ev_id", req.EVID), zap.Error(err))
		}
		httpserver.WriteGridError(w, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, desc)
}

// Sessions handles GET /sessions.
func (h *ChargeHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.tracker.List(),
	})
}

// Stop handles DELETE /sessions/{session_id}.
func (h *ChargeHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if sessionID == "" {
		httpserver.WriteError(w, http.StatusBadRequest, grid.CodeInvalidRequest, "session id is required")
		return
	}

	res, err := h.tracker.Stop(r.Context(), sessionID)
	if err != nil {
		if grid.Code(err) == grid.CodeInternal {
			h.logger.Error("stop session failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		httpserver.WriteGridError(w, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, res)
}
