package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus counters exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests     prometheus.Counter
	TokensUsed       prometheus.Counter
	ResearchSessions prometheus.Counter
	ResearchRounds   prometheus.Counter
	SearchRequests   *prometheus.CounterVec
	ImageGenerations prometheus.Counter
}

// NewMetrics registers all counters on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		ChatRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelknight_chat_requests_total",
			Help: "Chat completion requests handled.",
		}),
		TokensUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelknight_tokens_total",
			Help: "Total tokens reported by upstream providers.",
		}),
		ResearchSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelknight_research_sessions_total",
			Help: "Deep research runs started.",
		}),
		ResearchRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelknight_research_rounds_total",
			Help: "Individual research rounds executed.",
		}),
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelknight_search_requests_total",
			Help: "Web search requests by provider.",
		}, []string{"provider"}),
		ImageGenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelknight_image_generations_total",
			Help: "Images generated.",
		}),
	}
	registry.MustRegister(
		m.ChatRequests, m.TokensUsed,
		m.ResearchSessions, m.ResearchRounds,
		m.SearchRequests, m.ImageGenerations,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
