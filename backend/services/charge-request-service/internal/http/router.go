package http

import (
	"net/http"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/charge-request-service/internal/http/handlers"
)

// Routes groups handlers.
type Routes struct {
	Charge  *handlers.ChargeHandlers
	Status  *handlers.StatusHandlers
	Metrics http.Handler
}

// NewRouter registers endpoints. chargeLimit wraps POST /charge only.
func NewRouter(routes Routes, chargeLimit func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	charge := http.Handler(httpserver.Method(http.MethodPost, routes.Charge.Submit))
	if chargeLimit != nil {
		charge = chargeLimit(charge)
	}

	mux.Handle("/", httpserver.Method(http.MethodGet, routes.Status.Root))
	mux.Handle("/health", httpserver.Method(http.MethodGet, routes.Status.Health()))
	mux.Handle("/status", httpserver.Method(http.MethodGet, routes.Status.Status))
	mux.Handle("/charge", charge)
	mux.Handle("/sessions", httpserver.Method(http.MethodGet, routes.Charge.Sessions))
	mux.Handle("/sessions/", httpserver.Method(http.MethodDelete, routes.Charge.Stop))
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}

	return mux
}
