package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes entry point counters.
type Metrics struct {
	requests       prometheus.Counter
	duration       prometheus.Histogram
	activeSessions prometheus.Gauge
	failed         prometheus.Counter
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "charge_requests_total",
			Help: "Total charging requests received",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "charge_requests_duration_seconds",
			Help:    "Time to process charging requests",
			Buckets: prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of active charging sessions",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "failed_requests_total",
			Help: "Total failed requests",
		}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.activeSessions, err = register(reg, m.activeSessions); err != nil {
		return nil, err
	}
	if m.failed, err = register(reg, m.failed); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) received() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

func (m *Metrics) observe(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}

func (m *Metrics) failure() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) active(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
