package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest service.
type Metrics struct {
	RecordsParsed    prometheus.Counter
	ParseErrors      prometheus.Counter
	RecordsPublished prometheus.Counter
	SyncRunning      prometheus.Gauge

	Fetches         *prometheus.CounterVec // labels: outcome={success,error}
	MetadataGuesses prometheus.Counter

	FetchDuration prometheus.Histogram
	SyncDuration  prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsParsed,
		m.ParseErrors,
		m.RecordsPublished,
		m.SyncRunning,
		m.Fetches,
		m.MetadataGuesses,
		m.FetchDuration,
		m.SyncDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isd_ingest",
			Name:      "records_parsed_total",
			Help:      "Total observation records decoded from archive files.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isd_ingest",
			Name:      "parse_errors_total",
			Help:      "Total files aborted by a wire format violation.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isd_ingest",
			Name:      "records_published_total",
			Help:      "Total records written to the sink topic.",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "isd_ingest",
			Name:      "sync_running",
			Help:      "1 when the sync loop is active, 0 when shut down.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isd_ingest",
			Name:      "fetches_total",
			Help:      "Station-year fetch attempts by outcome.",
		}, []string{"outcome"}),
		MetadataGuesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isd_ingest",
			Name:      "metadata_guesses_total",
			Help:      "Filename guesses made for station years missing from the inventory.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isd_ingest",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one station-year fetch and parse.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isd_ingest",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete sync cycle over all stations.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
	}
}
