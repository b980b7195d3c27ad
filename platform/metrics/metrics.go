// Package metrics bundles the Prometheus collectors shared by the binaries.
// All methods are nil-safe so callers may run without metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
	OutcomeUpstream = "upstream_error"
)

// Metrics bundles Prometheus collectors for extraction and price analysis.
type Metrics struct {
	Registry           *prometheus.Registry
	BatchesTotal       *prometheus.CounterVec
	ProductsTotal      prometheus.Counter
	PricingTotal       *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
	ExtractionJobTotal *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_batches_total",
			Help: "Catalog extraction units processed, by outcome.",
		},
		[]string{"outcome"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_products_total",
			Help: "Product records returned by the extraction model.",
		},
	)
	pricing := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_requests_total",
			Help: "Price analysis requests, by outcome.",
		},
		[]string{"outcome"},
	)
	upstream := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of calls to external services.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_jobs_total",
			Help: "Asynchronous extraction jobs, by final status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(batches, products, pricing, upstream, jobs)

	return &Metrics{
		Registry:           registry,
		BatchesTotal:       batches,
		ProductsTotal:      products,
		PricingTotal:       pricing,
		UpstreamDuration:   upstream,
		ExtractionJobTotal: jobs,
	}
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncBatch counts one extraction unit.
func (m *Metrics) IncBatch(outcome string, products int) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	m.ProductsTotal.Add(float64(products))
}

// IncPricing counts one price analysis request.
func (m *Metrics) IncPricing(outcome string) {
	if m == nil {
		return
	}
	m.PricingTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of an external call in seconds.
func (m *Metrics) ObserveUpstream(service string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(service).Observe(seconds)
}

// IncJob counts a finished extraction job.
func (m *Metrics) IncJob(status string) {
	if m == nil {
		return
	}
	m.ExtractionJobTotal.WithLabelValues(status).Inc()
}
