// Package metrics exposes Prometheus instruments for the structuring
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scriptorium"

// Failure reasons for ExtractionFailed.
const (
	ReasonMalformed = "malformed"
	ReasonError     = "error"
)

// Run outcomes for RunFinished.
const (
	OutcomeOK       = "ok"
	OutcomeCanceled = "canceled"
)

// Metrics holds the pipeline instruments.
type Metrics struct {
	chunks             *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	records            *prometheus.CounterVec
	runs               *prometheus.CounterVec
	duration           prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks produced, by chunking strategy.",
		}, []string{"strategy"}),
		extractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Chunks whose extraction was dropped, by reason.",
		}, []string{"reason"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Partial records merged, by merge outcome.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.chunks, m.extractionFailures, m.records, m.runs, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ChunksProduced adds n chunks for a strategy.
func (m *Metrics) ChunksProduced(strategy string, n int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(strategy).Add(float64(n))
}

// ExtractionFailed counts a dropped chunk.
func (m *Metrics) ExtractionFailed(reason string) {
	if m == nil {
		return
	}
	m.extractionFailures.WithLabelValues(reason).Inc()
}

// RecordMerged counts a partial record by merge outcome.
func (m *Metrics) RecordMerged(kind string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind).Inc()
}

// RunFinished records a run's outcome and duration.
func (m *Metrics) RunFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
