package http

import (
	"net/http"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/substation-service/internal/http/handlers"
)

// Routes groups handlers.
type Routes struct {
	Charge  *handlers.ChargeHandlers
	Status  *handlers.StatusHandlers
	Metrics http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/", httpserver.Method(http.MethodGet, routes.Status.Root))
	mux.Handle("/health", httpserver.Method(http.MethodGet, routes.Status.Health()))
	mux.Handle("/status", httpserver.Method(http.MethodGet, routes.Status.Status))
	mux.Handle("/telemetry", httpserver.Method(http.MethodGet, routes.Status.Telemetry))
	mux.Handle("/sessions", httpserver.Method(http.MethodGet, routes.Charge.Sessions))
	mux.Handle("/charge", httpserver.Method(http.MethodPost, routes.Charge.Start))
	mux.Handle("/charge/", httpserver.Method(http.MethodDelete, routes.Charge.Stop))
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}

	return mux
}
