package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations    *prometheus.CounterVec
	compositeScore prometheus.Gauge
	panelRows      prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_evaluations_total",
				Help: "Total number of completed evaluations by regime",
			},
			[]string{"regime"},
		),
		compositeScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "macropulse_composite_score",
				Help: "Latest composite liquidity score",
			},
		),
		panelRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "macropulse_panel_rows",
				Help: "Rows in the most recently loaded panel",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation counts a completed evaluation by regime label.
func (r *Recorder) RecordEvaluation(regime string) {
	r.evaluations.WithLabelValues(regime).Inc()
}

// RecordCompositeScore publishes the latest composite score.
func (r *Recorder) RecordCompositeScore(score float64) {
	r.compositeScore.Set(score)
}

// RecordPanelRows publishes the size of the most recent panel.
func (r *Recorder) RecordPanelRows(n int) {
	r.panelRows.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
