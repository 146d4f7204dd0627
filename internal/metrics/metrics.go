// Package metrics exposes Prometheus instrumentation for the manifest pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for extraction and filing. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Extraction outcomes by model and result
	ExtractionOutcome *prometheus.CounterVec

	// End-to-end extraction latency
	ExtractionLatency prometheus.Histogram

	// Submission outcomes by manifest type and status
	SubmissionOutcome *prometheus.CounterVec

	// Filing call latency
	FilingLatency prometheus.Histogram
}

// New registers the pipeline metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExtractionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "borderdesk_extraction_outcomes_total",
			Help: "Total extraction outcomes by model and result",
		}, []string{"model", "result"}), // result: "complete", "incomplete", "invalid", "failed"

		ExtractionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "borderdesk_extraction_duration_seconds",
			Help:    "Duration of document extraction including the model call",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),

		SubmissionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "borderdesk_submission_outcomes_total",
			Help: "Total filing submissions by manifest type and status",
		}, []string{"manifest_type", "status"}),

		FilingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "borderdesk_filing_duration_seconds",
			Help:    "Duration of the filing system call",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
	}
}

// IncrementExtraction records one extraction outcome.
func (m *Metrics) IncrementExtraction(model, result string) {
	if m != nil {
		m.ExtractionOutcome.WithLabelValues(model, result).Inc()
	}
}

// ObserveExtractionLatency records the duration of one extraction.
func (m *Metrics) ObserveExtractionLatency(d time.Duration) {
	if m != nil {
		m.ExtractionLatency.Observe(d.Seconds())
	}
}

// IncrementSubmission records one filing outcome.
func (m *Metrics) IncrementSubmission(manifestType, status string) {
	if m != nil {
		m.SubmissionOutcome.WithLabelValues(manifestType, status).Inc()
	}
}

// ObserveFilingLatency records the duration of one filing call.
func (m *Metrics) ObserveFilingLatency(d time.Duration) {
	if m != nil {
		m.FilingLatency.Observe(d.Seconds())
	}
}
