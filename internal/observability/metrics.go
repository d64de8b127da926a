package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector agrupa las metricas Prometheus del worker. Cada instancia tiene
// su propio registry para que los tests puedan crear varias.
type Collector struct {
	registry *prometheus.Registry

	JobsTotal         *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	RuleFailures      *prometheus.CounterVec
	PairsScored       prometheus.Counter
	PairsSkipped      prometheus.Counter
	SemanticFallbacks prometheus.Counter
	EmbeddingCache    *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
}

// NewCollector crea y registra todas las metricas bajo el namespace dado.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Jobs processed by type and outcome",
			},
			[]string{"type", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		RuleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insight_rule_failures_total",
				Help:      "Insight rules that failed or panicked",
			},
			[]string{"rule"},
		),
		PairsScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pairs_scored_total",
				Help:      "Candidate pairs scored",
			},
		),
		PairsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pairs_skipped_total",
				Help:      "Candidate pairs skipped after a scoring failure",
			},
		),
		SemanticFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "semantic_fallbacks_total",
				Help:      "Embeddings that could not be obtained and fell back to the neutral score",
			},
		),
		EmbeddingCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_total",
				Help:      "Embedding lookups by cache tier and result",
			},
			[]string{"tier", "result"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.JobsTotal,
		c.JobDuration,
		c.RuleFailures,
		c.PairsScored,
		c.PairsSkipped,
		c.SemanticFallbacks,
		c.EmbeddingCache,
		c.BreakerState,
	)
	return c
}

// Registry expone el registry para el handler /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Los metodos siguientes aceptan un receptor nil para que los servicios
// funcionen sin telemetria.

func (c *Collector) ObserveJob(jobType, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.JobsTotal.WithLabelValues(jobType, status).Inc()
	c.JobDuration.WithLabelValues(jobType).Observe(elapsed.Seconds())
}

func (c *Collector) RuleFailed(rule string) {
	if c == nil {
		return
	}
	c.RuleFailures.WithLabelValues(rule).Inc()
}

func (c *Collector) PairScored() {
	if c == nil {
		return
	}
	c.PairsScored.Inc()
}

func (c *Collector) PairSkipped() {
	if c == nil {
		return
	}
	c.PairsSkipped.Inc()
}

func (c *Collector) SemanticFallback() {
	if c == nil {
		return
	}
	c.SemanticFallbacks.Inc()
}

func (c *Collector) CacheLookup(tier string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.EmbeddingCache.WithLabelValues(tier, result).Inc()
}

func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}
