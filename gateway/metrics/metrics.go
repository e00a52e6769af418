package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecuvault"

// Metrics holds the gateway's Prometheus collectors on a private registry, so several
// nodes can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	// DecryptionRequestsTotal counts oracle requests by callback kind.
	DecryptionRequestsTotal *prometheus.CounterVec
	// DeliveriesTotal counts finished deliveries by callback kind and outcome.
	DeliveriesTotal *prometheus.CounterVec
	// DeliveryDuration observes decrypt + sign + callback time.
	DeliveryDuration prometheus.Histogram
	// PendingRequests is the number of requests waiting for delivery.
	PendingRequests prometheus.Gauge
	// LedgerEventsTotal counts ledger events by type.
	LedgerEventsTotal *prometheus.CounterVec
	// APIRequestsTotal counts HTTP requests by route and status code.
	APIRequestsTotal *prometheus.CounterVec
	// APIRequestDuration observes HTTP latency by route.
	APIRequestDuration *prometheus.HistogramVec
}

// New creates and registers all gateway metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DecryptionRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decryption_requests_total",
				Help:      "Total number of decryption requests received from the ledger",
			},
			[]string{"callback"},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decryption_deliveries_total",
				Help:      "Total number of decryption callbacks by outcome",
			},
			[]string{"callback", "status"},
		),
		DeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decryption_delivery_duration_seconds",
				Help:      "Duration of decryption delivery",
				Buckets:   prometheus.DefBuckets,
			},
		),
		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "decryption_requests_pending",
				Help:      "Number of decryption requests waiting for delivery",
			},
		),
		LedgerEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_events_total",
				Help:      "Total number of events emitted by ledger transitions",
			},
			[]string{"type"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"route", "code"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.DecryptionRequestsTotal,
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.PendingRequests,
		m.LedgerEventsTotal,
		m.APIRequestsTotal,
		m.APIRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
