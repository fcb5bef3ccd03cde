// Package routing picks the least-loaded substation and forwards charge requests to it.
package routing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/services/load-balancer/internal/metrics"
	"evgrid/backend/services/load-balancer/internal/registry"
)

// Starter opens a charging session on a substation.
type Starter interface {
	Start(ctx context.Context, endpoint, evID string, requestedKW float64) (grid.SessionDescriptor, error)
}

// Router selects targets from the registry. It never retries and never falls back to a
// second substation.
type Router struct {
	registry *registry.Registry
	starter  Starter
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New builds a router. timeout bounds each forwarded start.
func New(reg *registry.Registry, starter Starter, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry: reg,
		starter:  starter,
		timeout:  timeout,
		metrics:  m,
		logger:   logger.Named("router"),
	}
}

// SelectTarget returns the observed endpoint with the lowest load percentage. Ties go to the
// earliest registered endpoint. ok is false when no endpoint has been observed.
func (r *Router) SelectTarget() (endpoint string, ok bool) {
	best := -1.0
	for _, e := range r.registry.Entries() {
		if !e.Observed {
			continue
		}
		if !ok || e.Snapshot.LoadPercentage < best {
			endpoint, best, ok = e.Endpoint, e.Snapshot.LoadPercentage, true
		}
	}
	return endpoint, ok
}

// Route forwards a start request to the selected substation. The returned descriptor carries
// the endpoint that accepted the session.
func (r *Router) Route(ctx context.Context, evID string, requestedKW float64) (grid.SessionDescriptor, error) {
	r.metrics.Request()

	endpoint, ok := r.SelectTarget()
	if !ok {
		r.metrics.RoutingFailed(grid.CodeNoCapacitySource)
		return grid.SessionDescriptor{}, fmt.Errorf("%w: no substation has reported telemetry", grid.ErrNoCapacitySource)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	desc, err := r.starter.Start(ctx, endpoint, evID, requestedKW)
	if err != nil {
		r.metrics.RoutingFailed(grid.Code(err))
		r.logger.Warn("routing failed",
			zap.String("substation", endpoint),
			zap.String("ev_id", evID),
			zap.Error(err),
		)
		return grid.SessionDescriptor{}, fmt.Errorf("route to %s: %w", endpoint, err)
	}

	desc.SubstationURL = endpoint
	r.metrics.Routed(endpoint)
	r.logger.Info("routed charge request",
		zap.String("substation", endpoint),
		zap.String("ev_id", evID),
		zap.String("session_id", desc.SessionID),
	)
	return desc, nil
}
