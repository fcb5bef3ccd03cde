package http

import (
	"net/http"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/load-balancer/internal/http/handlers"
)

// Routes groups handlers.
type Routes struct {
	Charge      *handlers.ChargeHandlers
	Substations *handlers.SubstationHandlers
	Status      *handlers.StatusHandlers
	Stream      http.HandlerFunc
	Metrics     http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/", httpserver.Method(http.MethodGet, routes.Status.Root))
	mux.Handle("/health", httpserver.Method(http.MethodGet, routes.Status.Health()))
	mux.Handle("/status", httpserver.Method(http.MethodGet, routes.Status.Status))
	mux.Handle("/charge", httpserver.Method(http.MethodPost, routes.Charge.Route))
	mux.Handle("/substations", httpserver.Methods(map[string]http.HandlerFunc{
		http.MethodGet:    routes.Substations.List,
		http.MethodPost:   routes.Substations.Add,
		http.MethodDelete: routes.Substations.Remove,
	}))
	if routes.Stream != nil {
		mux.Handle("/substations/stream", httpserver.Method(http.MethodGet, routes.Stream))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}

	return mux
}
