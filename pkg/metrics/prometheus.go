package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	evaluations *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	gridSize    prometheus.Histogram
	ingested    *prometheus.CounterVec
}

// New registers the recorder on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigderive_evaluations_total",
				Help: "Derived signal evaluations by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigderive_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigderive_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		gridSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigderive_aligned_grid_rows",
				Help:    "Rows in the aligned timestamp grid per evaluation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		ingested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigderive_samples_ingested_total",
				Help: "Channel samples written by the ingest path",
			},
			[]string{"backend"},
		),
	}
}

// RecordEvaluation counts an evaluation outcome ("ok", "invalid_formula", "no_data", ...).
func (r *Recorder) RecordEvaluation(result string) {
	r.evaluations.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordGridSize(rows int) {
	r.gridSize.Observe(float64(rows))
}

func (r *Recorder) RecordSamplesIngested(backend string, n int) {
	r.ingested.WithLabelValues(backend).Add(float64(n))
}
