// Package metrics defines the Prometheus collectors for index builds and
// title lookups and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Find outcomes.
const (
	ResultHit       = "hit"
	ResultEmpty     = "empty"
	ResultMalformed = "malformed"
	ResultNoQuery   = "no_query"
)

// Rejection reasons during build.
const (
	RejectShort     = "short"
	RejectInvalid   = "invalid"
	RejectDuplicate = "duplicate"
)

// Metrics holds all collectors.
type Metrics struct {
	FindTotal        *prometheus.CounterVec
	FindLatency      prometheus.Histogram
	Candidates       prometheus.Histogram
	TitlesIndexed    prometheus.Counter
	TitlesRejected   *prometheus.CounterVec
	BatchesCommitted prometheus.Counter
	DownloadedBytes  prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what library callers that do not export
// metrics want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FindTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikisearch_find_total",
				Help: "Title lookups by outcome (hit, empty, malformed, no_query).",
			},
			[]string{"result"},
		),
		FindLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikisearch_find_duration_seconds",
				Help:    "Title lookup latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		Candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikisearch_find_candidates",
				Help:    "Full-text candidates scored per lookup.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 250, 500},
			},
		),
		TitlesIndexed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikisearch_titles_indexed_total",
				Help: "Titles written to the index.",
			},
		),
		TitlesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikisearch_titles_rejected_total",
				Help: "Dump lines skipped during build by reason (short, invalid, duplicate).",
			},
			[]string{"reason"},
		),
		BatchesCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikisearch_batches_committed_total",
				Help: "Index batches committed.",
			},
		),
		DownloadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikisearch_dump_downloaded_bytes_total",
				Help: "Bytes of title dump downloaded.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.FindTotal,
			m.FindLatency,
			m.Candidates,
			m.TitlesIndexed,
			m.TitlesRejected,
			m.BatchesCommitted,
			m.DownloadedBytes,
		)
	}
	return m
}

// CacheStats is the view of the lemma cache exported as metrics.
type CacheStats interface {
	Len() int
	Hits() int64
	Misses() int64
}

// RegisterCache exports c's size and hit counters through reg.
func RegisterCache(reg prometheus.Registerer, c CacheStats) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "wikisearch_lemma_cache_entries",
			Help: "Words held in the lemma cache.",
		}, func() float64 { return float64(c.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wikisearch_lemma_cache_hits_total",
			Help: "Lemma cache hits.",
		}, func() float64 { return float64(c.Hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wikisearch_lemma_cache_misses_total",
			Help: "Lemma cache misses.",
		}, func() float64 { return float64(c.Misses()) }),
	)
}

// Handler returns an HTTP handler serving metrics from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
