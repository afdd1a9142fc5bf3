package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "resourcehub"

// Metrics groups the collectors the service records into.
type Metrics struct {
	HTTPRequests      *prom.CounterVec
	HTTPDuration      *prom.HistogramVec
	StoreOperations   *prom.CounterVec
	StoreDuration     *prom.HistogramVec
	EnrichedResources *prom.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prom.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		StoreOperations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Record store calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		StoreDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Record store call latency.",
			Buckets:   prom.DefBuckets,
		}, []string{"operation"}),
		EnrichedResources: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "enriched_resources_total",
			Help:      "Resources found through external search, by write outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.StoreOperations,
		m.StoreDuration,
		m.EnrichedResources,
	)
	return m
}
