// Package observability exposes the Prometheus instruments of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// Metrics owns its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ActiveBots     prometheus.Gauge
	Turns          *prometheus.CounterVec
	TurnLatency    *prometheus.HistogramVec
	WSMessages     *prometheus.CounterVec
	FinanceReports *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ActiveBots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_bots",
			Help:      "Number of live chat bots.",
		}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Answered turns by personality and outcome.",
		}, []string{"personality", "outcome"}),
		TurnLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Model latency per turn in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000},
		}, []string{"personality"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		FinanceReports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finance_reports_total",
			Help:      "Finance reports by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

// ObserveTurn records one answered turn.
func (m *Metrics) ObserveTurn(personality string, failed bool, latency time.Duration) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.Turns.WithLabelValues(personality, outcome).Inc()
	m.TurnLatency.WithLabelValues(personality).Observe(float64(latency.Milliseconds()))
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
