// Package metrics holds the load balancer's prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is shared by the poller and the router. A nil *Metrics records nothing.
type Metrics struct {
	requests         prometheus.Counter
	routingDecisions *prometheus.CounterVec
	routingFailures  *prometheus.CounterVec
	substationLoad   *prometheus.GaugeVec
	pollFailures     *prometheus.CounterVec
	pollingDuration  prometheus.Histogram
}

// New registers balancer collectors on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "load_balancer_requests_total",
			Help: "Total requests processed",
		}),
		routingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routing_decisions_total",
			Help: "Routing decisions made",
		}, []string{"substation"}),
		routingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routing_failures_total",
			Help: "Charge requests that could not be routed",
		}, []string{"reason"}),
		substationLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "substation_load_percentage",
			Help: "Current load percentage",
		}, []string{"substation"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_poll_failures_total",
			Help: "Failed telemetry polls",
		}, []string{"substation"}),
		pollingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "polling_duration_seconds",
			Help:    "Time to poll substation telemetry",
			Buckets: prometheus.DefBuckets,
		}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.routingDecisions, err = register(reg, m.routingDecisions); err != nil {
		return nil, err
	}
	if m.routingFailures, err = register(reg, m.routingFailures); err != nil {
		return nil, err
	}
	if m.substationLoad, err = register(reg, m.substationLoad); err != nil {
		return nil, err
	}
	if m.pollFailures, err = register(reg, m.pollFailures); err != nil {
		return nil, err
	}
	if m.pollingDuration, err = register(reg, m.pollingDuration); err != nil {
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

// Request counts one charge request received.
func (m *Metrics) Request() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

// Routed counts a successful routing decision.
func (m *Metrics) Routed(substation string) {
	if m == nil {
		return
	}
	m.routingDecisions.WithLabelValues(substation).Inc()
}

// RoutingFailed counts a failed route by wire code.
func (m *Metrics) RoutingFailed(reason string) {
	if m == nil {
		return
	}
	m.routingFailures.WithLabelValues(reason).Inc()
}

// Polled records one poll attempt.
func (m *Metrics) Polled(substation string, seconds float64, loadPercentage float64, err error) {
	if m == nil {
		return
	}
	m.pollingDuration.Observe(seconds)
	if err != nil {
		m.pollFailures.WithLabelValues(substation).Inc()
		return
	}
	m.substationLoad.WithLabelValues(substation).Set(loadPercentage)
}

// Forget drops per-substation series after removal.
func (m *Metrics) Forget(substation string) {
	if m == nil {
		return
	}
	m.substationLoad.DeleteLabelValues(substation)
	m.pollFailures.DeleteLabelValues(substation)
}
