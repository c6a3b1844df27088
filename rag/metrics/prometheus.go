// Package metrics exposes Prometheus counters and histograms for the
// assessment engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriscreen",
		Subsystem: "retrieval",
		Name:      "requests_total",
		Help:      "Retrieval requests by the strategy that produced the result.",
	}, []string{"strategy"})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriscreen",
		Subsystem: "retrieval",
		Name:      "source_failures_total",
		Help:      "Retrieval source failures by source.",
	}, []string{"source"})

	fallbackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriscreen",
		Subsystem: "retrieval",
		Name:      "fallback_transitions_total",
		Help:      "Cascade fallback transitions between strategies.",
	}, []string{"from", "to"})

	rerankDegradations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nutriscreen",
		Subsystem: "retrieval",
		Name:      "rerank_degradations_total",
		Help:      "Times reranking failed and fusion order was kept.",
	})

	assessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutriscreen",
		Subsystem: "assess",
		Name:      "duration_seconds",
		Help:      "End-to-end assessment latency.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
	}, []string{"status"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriscreen",
		Subsystem: "assess",
		Name:      "validation_failures_total",
		Help:      "Model output rejections by kind (malformed or invalid).",
	}, []string{"kind"})
)

// RecordStrategy counts a completed retrieval by its winning strategy.
func RecordStrategy(strategy string) {
	retrievalRequests.WithLabelValues(strategy).Inc()
}

// RecordSourceFailure counts a failed retrieval source call.
func RecordSourceFailure(source string) {
	sourceFailures.WithLabelValues(source).Inc()
}

// RecordFallback counts a cascade transition.
func RecordFallback(from, to string) {
	fallbackTransitions.WithLabelValues(from, to).Inc()
}

// RecordRerankDegradation counts a rerank failure that degraded to fusion
// order.
func RecordRerankDegradation() {
	rerankDegradations.Inc()
}

// RecordAssessDuration records end-to-end assessment latency with its
// outcome status (ok, malformed, invalid, error).
func RecordAssessDuration(status string, seconds float64) {
	assessDuration.WithLabelValues(status).Observe(seconds)
}

// RecordValidationFailure counts a rejected model output.
func RecordValidationFailure(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}
