// Package poller refreshes registry telemetry on a fixed interval.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/services/load-balancer/internal/metrics"
	"evgrid/backend/services/load-balancer/internal/registry"
)

// TelemetryFetcher reads telemetry from one substation endpoint.
type TelemetryFetcher interface {
	Telemetry(ctx context.Context, endpoint string) (grid.Telemetry, error)
}

// Observer is called after every completed cycle with the registry view.
type Observer func(entries []registry.Entry)

// Options tune a Poller. Zero values fall back to defaults.
type Options struct {
	Interval time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Observer Observer
}

// Poller runs one background goroutine that walks the registry sequentially.
type Poller struct {
	registry *registry.Registry
	fetcher  TelemetryFetcher
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	observer Observer
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a stopped poller.
func New(reg *registry.Registry, fetcher TelemetryFetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		registry: reg,
		fetcher:  fetcher,
		interval: opts.Interval,
		metrics:  opts.Metrics,
		logger:   opts.Logger.Named("poller"),
		observer: opts.Observer,
		now:      time.Now,
	}
}

// Interval returns the delay between cycles.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Running reports whether the loop goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start launches the polling goroutine. The first cycle runs immediately. Calling Start on a
// running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	p.logger.Info("started substation polling", zap.Duration("interval", p.interval))
}

// Stop signals the loop and waits for it to exit. Safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("stopped substation polling")
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single cycle over a snapshot of the registry.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, endpoint := range p.registry.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx, endpoint)
	}
	if p.observer != nil && ctx.Err() == nil {
		p.observer(p.registry.Entries())
	}
}

func (p *Poller) poll(ctx context.Context, endpoint string) {
	start := p.now()
	t, err := p.fetcher.Telemetry(ctx, endpoint)
	elapsed := p.now().Sub(start).Seconds()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !p.registry.Contains(endpoint) {
			p.logger.Debug("substation removed during poll", zap.String("substation", endpoint))
			return
		}
		p.metrics.Polled(endpoint, elapsed, 0, err)
		p.logger.Warn("failed to poll substation", zap.String("substation", endpoint), zap.Error(err))
		return
	}

	if !p.registry.Update(endpoint, t, p.now()) {
		p.logger.Debug("substation removed during poll", zap.String("substation", endpoint))
		return
	}
	p.metrics.Polled(endpoint, elapsed, t.LoadPercentage(), nil)
	p.logger.Debug("updated substation telemetry",
		zap.String("substation", endpoint),
		zap.Float64("load_percentage", t.LoadPercentage()),
	)
}
