package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "earthguard"

// Metrics holds the Prometheus collectors shared by ingestion, notification and relay.
type Metrics struct {
	ReportsAccepted *prometheus.CounterVec // labels: kind
	ReportsRejected *prometheus.CounterVec // labels: kind, reason={invalid,storage}

	// Fan-out metrics.
	Deliveries *prometheus.CounterVec // labels: event, outcome={delivered,dropped}

	Assessments *prometheus.CounterVec // labels: risk_level

	FeedPolls       *prometheus.CounterVec // labels: source, outcome={success,error}
	RelayPublished  *prometheus.CounterVec // labels: outcome={success,error,dropped}
	RelayPublishDur prometheus.Histogram
}

func newCollectors() *Metrics {
	return &Metrics{
		ReportsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_accepted_total",
			Help:      "Reports persisted and broadcast, by kind.",
		}, []string{"kind"}),
		ReportsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rejected_total",
			Help:      "Reports refused before broadcast, by kind and reason.",
		}, []string{"kind", "reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Per-subscriber event deliveries by event name and outcome.",
		}, []string{"event", "outcome"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tsunami_assessments_total",
			Help:      "Tsunami assessments by resulting risk level.",
		}, []string{"risk_level"}),
		FeedPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_polls_total",
			Help:      "Upstream feed polls by source and outcome.",
		}, []string{"source", "outcome"}),
		RelayPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Report envelopes handed to Kafka by outcome.",
		}, []string{"outcome"}),
		RelayPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_publish_duration_seconds",
			Help:      "Duration of a single Kafka publish.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// NewMetrics creates and registers all collectors with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(
		m.ReportsAccepted,
		m.ReportsRejected,
		m.Deliveries,
		m.Assessments,
		m.FeedPolls,
		m.RelayPublished,
		m.RelayPublishDur,
	)
	return m
}

// NewMetricsForTesting returns unregistered collectors so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newCollectors()
}

// NewClientsGauge reports the live subscriber count on every scrape.
func NewClientsGauge(count func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_clients",
		Help:      "Subscribers currently attached to the real-time channel.",
	}, func() float64 { return float64(count()) })
}
