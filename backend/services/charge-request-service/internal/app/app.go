package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"evgrid/backend/libs/gridclient"
	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/charge-request-service/internal/clients"
	"evgrid/backend/services/charge-request-service/internal/config"
	chargehttp "evgrid/backend/services/charge-request-service/internal/http"
	"evgrid/backend/services/charge-request-service/internal/http/handlers"
	"evgrid/backend/services/charge-request-service/internal/service"
)

// App wires charge request service dependencies.
type App struct {
	server  *httpserver.Server
	tracker *service.Tracker
	logger  *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	httpClient := gridclient.NewDefaultHTTPClient(0)
	balancer := clients.NewBalancerClient(cfg.Balancer.URL, httpClient, cfg.BalancerTimeout())
	substations := gridclient.NewSubstationClient(httpClient, gridclient.Timeouts{Stop: cfg.StopTimeout()})
	tracker := service.NewTracker(balancer, substations, metrics, logger)

	router := chargehttp.NewRouter(chargehttp.Routes{
		Charge:  handlers.NewChargeHandlers(tracker, logger),
		Status:  handlers.NewStatusHandlers(tracker, balancer.BaseURL()),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, httpserver.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		httpserver.RecoveryMiddleware(logger),
		httpserver.RequestIDMiddleware(),
		httpserver.LoggingMiddleware(logger),
	)

	logger.Info("charge request service configured", zap.String("load_balancer_url", balancer.BaseURL()))
	return &App{server: server, tracker: tracker, logger: logger}, nil
}

// Handler exposes the wrapped router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Tracker returns the session tracker.
func (a *App) Tracker() *service.Tracker {
	return a.tracker
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}
