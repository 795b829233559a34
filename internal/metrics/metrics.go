package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"manual-rag/internal/models"
)

const namespace = "manual_rag"

// query outcomes
const (
	OutcomeAnswered = "answered"
	OutcomeRefused  = "refused"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Collector holds the query metrics on its own registry.
type Collector struct {
	registry           *prometheus.Registry
	queries            *prometheus.CounterVec
	retrievalDuration  prometheus.Histogram
	generationDuration prometheus.Histogram
	chapterFiltered    prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of questions handled, by outcome",
			},
			[]string{"outcome"},
		),
		retrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of similarity searches",
			Buckets:   prometheus.DefBuckets,
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of answer generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		chapterFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapter_filtered_queries_total",
			Help:      "Questions whose search was restricted to one chapter",
		}),
	}
}

// ObserveOutcome records a completed query.
func (c *Collector) ObserveOutcome(outcome *models.QueryOutcome) {
	c.retrievalDuration.Observe(outcome.RetrievalLatency.Seconds())
	if outcome.AppliedChapterFilter != nil {
		c.chapterFiltered.Inc()
	}
	if outcome.Answer == models.RefusalAnswer && outcome.GenerationLatency == 0 {
		c.queries.WithLabelValues(OutcomeRefused).Inc()
		return
	}
	c.generationDuration.Observe(outcome.GenerationLatency.Seconds())
	c.queries.WithLabelValues(OutcomeAnswered).Inc()
}

// ObserveFailure records a query that did not produce an outcome.
func (c *Collector) ObserveFailure(outcome string) {
	c.queries.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
