package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "pythonservice"

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	DiscoveryOperations *prometheus.CounterVec
	Registered          prometheus.Gauge
}

// NewMetrics creates the service metrics on a dedicated registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code",
		}, []string{"route", "code"}),
		DiscoveryOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_operations_total",
			Help:      "Calls to the discovery service, by operation and result",
		}, []string{"operation", "result"}),
		Registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovery_registered",
			Help:      "1 while the instance is registered with the discovery service",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.DiscoveryOperations,
		m.Registered,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests and the metrics server.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveDiscovery counts one discovery call; err decides the result label.
func (m *Metrics) ObserveDiscovery(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.DiscoveryOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) SetRegistered(registered bool) {
	if m == nil {
		return
	}
	if registered {
		m.Registered.Set(1)
	} else {
		m.Registered.Set(0)
	}
}
