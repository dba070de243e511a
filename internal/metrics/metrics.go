// Package metrics exposes Prometheus instrumentation for the tutoring
// service: turn throughput, completions, and the model-call audit counters.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hmkang/maieut/internal/llm"
)

// Metrics holds the registry and every instrument the service records.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal       *prometheus.CounterVec
	CompletionsTotal prometheus.Counter
	TurnDuration     prometheus.Histogram

	LLMRequestsTotal *prometheus.CounterVec
	LLMTokensTotal   *prometheus.CounterVec
	LLMCostUSD       prometheus.Counter
	LLMLatency       *prometheus.HistogramVec
}

// New builds a registry with all instruments registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maieut",
			Name:      "turns_total",
			Help:      "Completed tutoring turns by difficulty.",
		}, []string{"difficulty"}),
		CompletionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maieut",
			Name:      "completions_total",
			Help:      "Conversations that reached an understanding score of 100.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maieut",
			Name:      "turn_duration_seconds",
			Help:      "Wall time of one full turn including both model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		LLMRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maieut",
			Name:      "llm_requests_total",
			Help:      "Model calls by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		LLMTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maieut",
			Name:      "llm_tokens_total",
			Help:      "Token consumption by direction.",
		}, []string{"direction"}),
		LLMCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maieut",
			Name:      "llm_cost_usd_total",
			Help:      "Estimated cumulative model spend in USD.",
		}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "maieut",
			Name:      "llm_request_duration_seconds",
			Help:      "Model call latency by purpose.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"purpose"}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.CompletionsTotal,
		m.TurnDuration,
		m.LLMRequestsTotal,
		m.LLMTokensTotal,
		m.LLMCostUSD,
		m.LLMLatency,
	)
	return m
}

// Handler returns the /metrics scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// RecordLLMRequest implements llm.Recorder, so the metrics sit next to the
// sqlite audit trail in the provider's recorder fan-out.
func (m *Metrics) RecordLLMRequest(_ context.Context, rec llm.RequestRecord) error {
	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}
	m.LLMRequestsTotal.WithLabelValues(rec.Purpose, outcome).Inc()
	m.LLMTokensTotal.WithLabelValues("input").Add(float64(rec.InputTokens))
	m.LLMTokensTotal.WithLabelValues("output").Add(float64(rec.OutputTokens))
	m.LLMCostUSD.Add(rec.CostUSD)
	m.LLMLatency.WithLabelValues(rec.Purpose).Observe(float64(rec.LatencyMs) / 1000)
	return nil
}
