// Package metrics exposes Prometheus counters and gauges for the pipeline
// and the LLM circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickDuration records how long one orchestrator RunOnce took.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prismis_tick_duration_seconds",
		Help:    "Duration of one orchestrator tick.",
		Buckets: prometheus.DefBuckets,
	})

	// TickItems counts items processed per tick by outcome.
	TickItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prismis_tick_items_total",
		Help: "Items processed per tick, labeled by outcome.",
	}, []string{"outcome"}) // new, updated

	// FetchDuration records per-source fetch latency.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prismis_fetch_duration_seconds",
		Help:    "Duration of a single fetcher run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// FetchErrors counts fetch failures by source kind.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prismis_fetch_errors_total",
		Help: "Total fetch errors by source kind.",
	}, []string{"kind"})

	// SourceDeactivations counts automatic deactivations (5 consecutive errors).
	SourceDeactivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prismis_source_deactivations_total",
		Help: "Total sources auto-deactivated after 5 consecutive fetch errors.",
	})

	// BreakerState mirrors the circuit breaker's current state (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prismis_llm_breaker_state",
		Help: "LLM circuit breaker state: 0=closed, 1=half-open, 2=open.",
	})

	// BreakerTransitions counts every breaker state change.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prismis_llm_breaker_transitions_total",
		Help: "Total LLM circuit breaker state transitions.",
	}, []string{"from", "to"})

	// LLMCalls counts LLM calls by operation and outcome.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prismis_llm_calls_total",
		Help: "Total LLM calls by operation and outcome.",
	}, []string{"operation", "outcome"}) // summarize|evaluate|embed, ok|rejected|transient|error

	// EmbeddingBackfillProcessed counts items embedded by the backfill job.
	EmbeddingBackfillProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prismis_embedding_backfill_processed_total",
		Help: "Total items successfully embedded by the backfill job.",
	})

	// EmbeddingBackfillFailed counts backfill embedding failures.
	EmbeddingBackfillFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prismis_embedding_backfill_failed_total",
		Help: "Total backfill embedding attempts that failed.",
	})
)

// ObserveFetch records duration and, on error, increments FetchErrors.
func ObserveFetch(kind string, start time.Time, err error) {
	FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrors.WithLabelValues(kind).Inc()
	}
}
