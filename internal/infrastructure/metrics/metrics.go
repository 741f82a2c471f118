// Package metrics exposes Prometheus metrics for the HTTP API and the
// allocation engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopstock/internal/core/types"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/stock"
)

const namespace = "shopstock"

// Metrics owns a private registry and every collector of the service.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	unitsAllocated  *prometheus.CounterVec
	allocations     *prometheus.CounterVec
	shortages       *prometheus.CounterVec
	unitsRestored   *prometheus.CounterVec
	unitsDropped    *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	inconsistencies *prometheus.CounterVec

	outboxEvents *prometheus.CounterVec
}

var _ allocation.Observer = (*Metrics)(nil)

// New creates the registry, including Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		unitsAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_units_total",
			Help:      "Units deducted from batches by allocate and reallocate.",
		}, []string{"op"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Successful allocations, split by whether a top-up batch was created.",
		}, []string{"op", "topped_up"}),
		shortages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_shortages_total",
			Help:      "Allocations rejected for insufficient stock.",
		}, []string{"brand"}),
		unitsRestored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reversal_units_restored_total",
			Help:      "Units returned to batches by reversals.",
		}, []string{"brand"}),
		unitsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reversal_units_dropped_total",
			Help:      "Units that could not be returned to any batch.",
		}, []string{"brand"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_compensations_total",
			Help:      "Failed operations whose partial writes were undone.",
		}, []string{"op"}),
		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_inconsistent_total",
			Help:      "Failed operations that could not be undone.",
		}, []string{"op"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events relayed by the worker, by type.",
		}, []string{"event_type"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration,
		m.unitsAllocated, m.allocations, m.shortages,
		m.unitsRestored, m.unitsDropped,
		m.compensations, m.inconsistencies,
		m.outboxEvents,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// OutboxEvent counts a relayed event.
func (m *Metrics) OutboxEvent(eventType string) {
	m.outboxEvents.WithLabelValues(eventType).Inc()
}

// Allocated implements allocation.Observer.
func (m *Metrics) Allocated(op string, _ stock.ProductKey, quantity types.Quantity, toppedUp bool) {
	m.unitsAllocated.WithLabelValues(op).Add(float64(quantity))
	m.allocations.WithLabelValues(op, strconv.FormatBool(toppedUp)).Inc()
}

// Shortage implements allocation.Observer.
func (m *Metrics) Shortage(key stock.ProductKey, _, _ types.Quantity) {
	m.shortages.WithLabelValues(key.Brand).Inc()
}

// Reversed implements allocation.Observer.
func (m *Metrics) Reversed(key stock.ProductKey, restored, dropped types.Quantity) {
	m.unitsRestored.WithLabelValues(key.Brand).Add(float64(restored))
	if dropped > 0 {
		m.unitsDropped.WithLabelValues(key.Brand).Add(float64(dropped))
	}
}

// Compensated implements allocation.Observer.
func (m *Metrics) Compensated(op string, _ int) {
	m.compensations.WithLabelValues(op).Inc()
}

// Inconsistent implements allocation.Observer.
func (m *Metrics) Inconsistent(op string) {
	m.inconsistencies.WithLabelValues(op).Inc()
}
