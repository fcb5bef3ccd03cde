package app

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"evgrid/backend/libs/httpserver"
	"evgrid/backend/services/substation-service/internal/config"
	substationhttp "evgrid/backend/services/substation-service/internal/http"
	"evgrid/backend/services/substation-service/internal/http/handlers"
	"evgrid/backend/services/substation-service/internal/service"
)

// App wires substation dependencies.
type App struct {
	server     *httpserver.Server
	substation *service.Substation
	registry   *prometheus.Registry
	logger     *zap.Logger
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

	seed := uint64(time.Now().UnixNano())
	id, capacity := cfg.Identity(rand.New(rand.NewPCG(seed, seed>>1)))
	substation := service.NewSubstation(id, capacity, metrics, logger)
	logger.Info("substation initialised",
		zap.String("substation_id", id),
		zap.Float64("max_capacity_kw", capacity),
	)

	router := substationhttp.NewRouter(substationhttp.Routes{
		Charge:  handlers.NewChargeHandlers(substation, logger),
		Status:  handlers.NewStatusHandlers(substation),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		httpserver.RecoveryMiddleware(logger),
		httpserver.RequestIDMiddleware(),
		httpserver.LoggingMiddleware(logger),
	)

	return &App{
		server:     server,
		substation: substation,
		registry:   registry,
		logger:     logger,
	}, nil
}

// Handler exposes the wrapped router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Substation returns the owned substation.
func (a *App) Substation() *service.Substation {
	return a.substation
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}
