package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	evaluationsTotal        *prometheus.CounterVec
	batchSize               prometheus.Histogram
	resultAlignmentWarnings *prometheus.CounterVec
	compensationFailures    prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluations_processed_total",
			Help: "Total number of evaluations processed by batch grading, by outcome.",
		}, []string{"outcome"})

		batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_batch_size",
			Help:    "Number of evaluations submitted per batch grading run.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		})

		resultAlignmentWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_alignment_warnings_total",
			Help: "Rubric/result count mismatches observed while reconciling grading output.",
		}, []string{"kind"})

		compensationFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_compensation_failures_total",
			Help: "Failed attempts to mark an evaluation failed after a rollback.",
		})

		prometheus.MustRegister(evaluationsTotal, batchSize, resultAlignmentWarnings, compensationFailures)
	})
}

// EvaluationsProcessed exposes the per-outcome evaluation counter.
func EvaluationsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// BatchSize exposes the batch size histogram.
func BatchSize() prometheus.Histogram {
	RegisterMetrics()
	return batchSize
}

// AlignmentWarnings exposes the rubric/result mismatch counter.
func AlignmentWarnings() *prometheus.CounterVec {
	RegisterMetrics()
	return resultAlignmentWarnings
}

// CompensationFailures exposes the counter for failed compensating writes.
func CompensationFailures() prometheus.Counter {
	RegisterMetrics()
	return compensationFailures
}
