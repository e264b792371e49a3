package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the engine's Prometheus collectors behind one registry so
// tests and multiple engines never fight over the default registry.
type Set struct {
	registry *prometheus.Registry

	BarsIngested    *prometheus.CounterVec
	IntentsEmitted  *prometheus.CounterVec
	TradesRejected  *prometheus.CounterVec
	StopsRatcheted  prometheus.Counter
	CurrentContext  prometheus.Gauge
	EvaluationSecs  prometheus.Histogram
}

// NewSet creates and registers all engine collectors.
func NewSet() *Set {
	registry := prometheus.NewRegistry()

	s := &Set{
		registry: registry,
		BarsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendgate_bars_ingested_total",
			Help: "Closed bars ingested, by timeframe.",
		}, []string{"timeframe"}),
		IntentsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendgate_order_intents_total",
			Help: "Order intents emitted, by side.",
		}, []string{"side"}),
		TradesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendgate_trades_rejected_total",
			Help: "Trade-path rejections, by reason.",
		}, []string{"reason"}),
		StopsRatcheted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendgate_stops_ratcheted_total",
			Help: "Trailing stop modification intents emitted.",
		}),
		CurrentContext: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendgate_market_context",
			Help: "Current market context (0 undefined, 1 up, 2 down, 3 ranging).",
		}),
		EvaluationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendgate_evaluation_seconds",
			Help:    "Wall time of one bar evaluation.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		s.BarsIngested,
		s.IntentsEmitted,
		s.TradesRejected,
		s.StopsRatcheted,
		s.CurrentContext,
		s.EvaluationSecs,
	)

	return s
}

// Handler exposes the set's registry for the HTTP surface.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
