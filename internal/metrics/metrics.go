// Package metrics holds the Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the analytics engine.
type Metrics struct {
	TicksTotal   prometheus.Counter
	LateTicks    prometheus.Counter
	WSReconnects prometheus.Counter

	BarsTotal *prometheus.CounterVec // labels: interval

	AnalyticsDur prometheus.Histogram

	WSClients       prometheus.Gauge
	SubscriberDrops prometheus.Counter
	AlertsTotal     prometheus.Counter

	RedisPublishDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statarb_ticks_total",
			Help: "Total trade ticks received from the upstream feed",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statarb_late_ticks_total",
			Help: "Ticks dropped because their bucket was already closed",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statarb_ws_reconnects_total",
			Help: "Upstream WebSocket reconnection attempts",
		}),
		BarsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statarb_bars_finalized_total",
			Help: "Finalized OHLCV bars (by interval)",
		}, []string{"interval"}),
		AnalyticsDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "statarb_analytics_duration_seconds",
			Help:    "Per-iteration analytics computation latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statarb_ws_clients",
			Help: "Currently connected WebSocket subscribers across all topics",
		}),
		SubscriberDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statarb_ws_subscriber_drops_total",
			Help: "WebSocket subscribers evicted after a failed send",
		}),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statarb_alerts_total",
			Help: "Alerts emitted past the cooldown filter",
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "statarb_redis_publish_duration_seconds",
			Help:    "Redis PUBLISH latency for the bar/alert mirror",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.LateTicks,
		m.WSReconnects,
		m.BarsTotal,
		m.AnalyticsDur,
		m.WSClients,
		m.SubscriberDrops,
		m.AlertsTotal,
		m.RedisPublishDur,
	)

	return m
}
