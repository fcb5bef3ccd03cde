package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"evgrid/backend/libs/gridclient"
	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/load-balancer/internal/config"
	balancerhttp "evgrid/backend/services/load-balancer/internal/http"
	"evgrid/backend/services/load-balancer/internal/http/handlers"
	"evgrid/backend/services/load-balancer/internal/metrics"
	"evgrid/backend/services/load-balancer/internal/poller"
	"evgrid/backend/services/load-balancer/internal/registry"
	"evgrid/backend/services/load-balancer/internal/routing"
	"evgrid/backend/services/load-balancer/internal/ws"
)

// App wires load balancer dependencies.
type App struct {
	server   *httpserver.Server
	registry *registry.Registry
	poller   *poller.Poller
	router   *routing.Router
	hub      *ws.Hub
	logger   *zap.Logger
}

// New constructs application graph and seeds the registry from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(promRegistry)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	for _, raw := range cfg.Substations {
		endpoint, err := registry.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("seed substations: %w", err)
		}
		if reg.Add(endpoint) {
			logger.Info("added substation", zap.String("substation", endpoint))
		}
	}

	client := gridclient.NewSubstationClient(
		gridclient.NewDefaultHTTPClient(0),
		gridclient.Timeouts{Telemetry: cfg.PollTimeout(), Start: cfg.RouteTimeout()},
	)

	hub := ws.NewHub(logger)
	telemetryPoller := poller.New(reg, client, poller.Options{
		Interval: cfg.PollInterval(),
		Metrics:  m,
		Logger:   logger,
		Observer: hub.Publish,
	})
	router := routing.New(reg, client, cfg.RouteTimeout(), m, logger)
	stream := ws.NewServer(hub, reg.Entries, cfg.Stream.WriteTimeout, cfg.Stream.PingInterval, logger)

	handler := balancerhttp.NewRouter(balancerhttp.Routes{
		Charge:      handlers.NewChargeHandlers(router, logger),
		Substations: handlers.NewSubstationHandlers(reg, m, logger),
		Status:      handlers.NewStatusHandlers(reg, telemetryPoller, hub),
		Stream:      stream.HandleWS,
		Metrics:     promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{Registry: promRegistry}),
	})

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		handler,
		logger,
		httpserver.RecoveryMiddleware(logger),
		httpserver.RequestIDMiddleware(),
		httpserver.LoggingMiddleware(logger),
	)

	return &App{
		server:   server,
		registry: reg,
		poller:   telemetryPoller,
		router:   router,
		hub:      hub,
		logger:   logger,
	}, nil
}

// Handler exposes the wrapped router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Registry returns the substation registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Poller returns the telemetry poller.
func (a *App) Poller() *poller.Poller {
	return a.poller
}

// Run starts the poller and serves HTTP traffic until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.poller.Start(ctx)
	defer a.poller.Stop()
	return a.server.Run(ctx)
}

// Close disconnects stream subscribers.
func (a *App) Close() {
	a.poller.Stop()
	a.hub.Close()
}
