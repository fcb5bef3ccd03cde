package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/substation-service/internal/service"
)

// ChargeHandlers exposes the substation's start/stop operations.
type ChargeHandlers struct {
	substation *service.Substation
	logger     *zap.Logger
}

// NewChargeHandlers returns handler set.
func NewChargeHandlers(substation *service.Substation, logger *zap.Logger) *ChargeHandlers {
	return &ChargeHandlers{substation: substation, logger: logger}
}

// Start handles POST /charge.
func (h *ChargeHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req grid.ChargeRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httpserver.WriteGridError(w, err)
		return
	}

	session, err := h.substation.StartCharging(req.EVID, req.KW())
	if err != nil {
		if errors.Is(err, grid.ErrCapacityExhausted) {
			httpserver.WriteError(w, http.StatusServiceUnavailable, grid.CodeCapacityExhausted, "Insufficient capacity")
			return
		}
		httpserver.WriteGridError(w, err)
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, grid.SessionDescriptor{
		SessionID:    session.ID,
		Status:       grid.StatusStarted,
		SubstationID: session.SubstationID,
	})
}

// Stop handles DELETE /charge/{session_id}.
func (h *ChargeHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/charge/"), "/")
	if sessionID == "" {
		httpserver.WriteError(w, http.StatusBadRequest, grid.CodeInvalidRequest, "session id is required")
		return
	}

	_, duration, err := h.substation.StopCharging(sessionID)
	if err != nil {
		if errors.Is(err, grid.ErrNotFound) {
			httpserver.WriteError(w, http.StatusNotFound, grid.CodeNotFound, "Session not found")
			return
		}
		h.logger.Error("stop charging failed", zap.String("session_id", sessionID), zap.Error(err))
		httpserver.WriteGridError(w, err)
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, grid.StopResult{
		Status:          grid.StatusStopped,
		SessionID:       sessionID,
		DurationSeconds: duration.Seconds(),
	})
}

// Sessions handles GET /sessions.
func (h *ChargeHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"substation_id": h.substation.ID(),
		"sessions":      h.substation.Sessions(),
	})
}
