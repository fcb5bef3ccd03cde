package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes substation gauges. The current_load and total_capacity names are what
// operators scrape for dashboards.
type Metrics struct {
	currentLoad    prometheus.Gauge
	totalCapacity  prometheus.Gauge
	activeChargers prometheus.Gauge
	requests       prometheus.Counter
	rejections     prometheus.Counter
	duration       prometheus.Histogram
}

// NewMetrics registers substation collectors on reg. Collectors already present on reg are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		currentLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "current_load",
			Help: "Currently allocated charging load in kW",
		}),
		totalCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "total_capacity",
			Help: "Total charging capacity in kW",
		}),
		activeChargers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_chargers",
			Help: "Number of active chargers",
		}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "charging_requests_total",
			Help: "Total number of accepted charging requests",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "charging_rejections_total",
			Help: "Charging requests rejected for insufficient capacity",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "charging_duration_seconds",
			Help:    "Time spent charging",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}

	var err error
	if m.currentLoad, err = register(reg, m.currentLoad); err != nil {
		return nil, err
	}
	if m.totalCapacity, err = register(reg, m.totalCapacity); err != nil {
		return nil, err
	}
	if m.activeChargers, err = register(reg, m.activeChargers); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.rejections, err = register(reg, m.rejections); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
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

func (m *Metrics) setCapacity(kw float64) {
	if m == nil {
		return
	}
	m.totalCapacity.Set(kw)
}

func (m *Metrics) setLoad(kw float64, active int) {
	if m == nil {
		return
	}
	m.currentLoad.Set(kw)
	m.activeChargers.Set(float64(active))
}

func (m *Metrics) accepted() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) stopped(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}
