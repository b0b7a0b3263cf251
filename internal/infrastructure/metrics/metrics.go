package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the chat service collectors. Each instance owns its registry
// so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	MessagesSent prometheus.Counter
	Broadcasts   *prometheus.CounterVec
	RateLimited  prometheus.Counter
}

// New registers the chat collectors plus the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages persisted through the send and start-conversation endpoints.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_broadcasts_total",
			Help: "Push events published, by transport.",
		}, []string{"transport"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Requests rejected by the per-identity rate limiter.",
		}),
	}
	reg.MustRegister(
		m.MessagesSent,
		m.Broadcasts,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackSessions exposes the current number of websocket sessions as the
// chat_push_sessions gauge.
func (m *Metrics) TrackSessions(sessions func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "chat_push_sessions",
			Help: "Open websocket push sessions on this node.",
		},
		func() float64 { return float64(sessions()) },
	))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
