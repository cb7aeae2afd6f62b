// Package metrics holds the Prometheus collectors for checkout, the outbox
// and the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outbox delivery results.
const (
	OutboxDelivered = "delivered"
	OutboxRetried   = "retried"
	OutboxDead      = "dead"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	OrdersCreated       prometheus.Counter
	CheckoutFailures    *prometheus.CounterVec
	OutboxEvents        *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liftcart",
			Name:      "orders_created_total",
			Help:      "Orders successfully created from carts.",
		}),
		CheckoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcart",
			Name:      "checkout_failures_total",
			Help:      "Checkouts that did not produce an order, by reason.",
		}, []string{"reason"}),
		OutboxEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcart",
			Name:      "outbox_events_total",
			Help:      "Outbox delivery attempts by event type and result.",
		}, []string{"type", "result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcart",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "liftcart",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CheckoutFailed counts a failed checkout.
func (m *Metrics) CheckoutFailed(reason string) {
	m.CheckoutFailures.WithLabelValues(reason).Inc()
}

// OutboxResult counts one outbox delivery outcome.
func (m *Metrics) OutboxResult(eventType, result string) {
	m.OutboxEvents.WithLabelValues(eventType, result).Inc()
}
