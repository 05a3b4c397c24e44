// Package metrics registers the Prometheus collectors this indexer
// exposes for its ingestion and query paths, mirroring the counter/
// gauge/histogram naming conventions erigon-lib's own metrics package
// uses for its RPC and stage-sync instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kgindexer"

// Metrics bundles every collector this indexer registers. Construct one
// with New and register it with a prometheus.Registerer at startup.
type Metrics struct {
	BundlesProcessed     prometheus.Counter
	EventsProcessed      *prometheus.CounterVec
	BackendCallDuration  prometheus.Histogram
	ContentFetchDuration prometheus.Histogram
	IngestionLagSeconds  prometheus.Gauge
	RetriesTotal         *prometheus.CounterVec
}

// New constructs the collector set without registering it.
func New() *Metrics {
	return &Metrics{
		BundlesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundles_processed_total",
			Help:      "Block-scoped bundles successfully processed.",
		}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events processed, by category.",
		}, []string{"category"}),
		BackendCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Latency of graph backend Run/Execute calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		ContentFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_fetch_duration_seconds",
			Help:      "Latency of content-store (IPFS) fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		IngestionLagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingestion_lag_seconds",
			Help:      "Wall-clock time minus the last processed bundle's block timestamp.",
		}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries attempted, by error kind.",
		}, []string{"kind"}),
	}
}

// MustRegister registers every collector with reg, panicking on a
// duplicate-registration error the way erigon-lib's own metrics setup
// does at process startup (a programming error, not a runtime one).
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BundlesProcessed,
		m.EventsProcessed,
		m.BackendCallDuration,
		m.ContentFetchDuration,
		m.IngestionLagSeconds,
		m.RetriesTotal,
	)
}
