package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed evaluations.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels evaluations rejected for bad input.
	OutcomeInvalid = "invalid"
	// OutcomeError labels evaluations that failed for any other reason.
	OutcomeError = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "microres",
			Name:      "evaluations_total",
			Help:      "Total number of evaluations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "microres",
			Name:      "evaluation_seconds",
			Help:      "Evaluation latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	resilienceIndex = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "microres",
			Name:      "resilience_index",
			Help:      "Distribution of computed resilience indices.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)

	rankedMetrics = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "microres",
			Name:      "ranked_metrics",
			Help:      "Number of metrics ranked per evaluation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "microres",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)
)

// Register attaches microres collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		resilienceIndex,
		rankedMetrics,
		cacheLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records an evaluation duration and outcome label.
func ObserveEvaluation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeInvalid {
		label = OutcomeSuccess
	}
	evaluationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
}

// ObserveResult records the index and ranking size of a completed evaluation.
func ObserveResult(index float64, ranked int) {
	resilienceIndex.Observe(index)
	rankedMetrics.Observe(float64(ranked))
}

// ObserveCacheLookup counts a result cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues(CacheMiss).Inc()
}
