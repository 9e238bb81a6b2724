// Package orchestrator owns the engine components and drives the periodic
// analytics pass: every second it snapshots the settings, pulls the latest
// prices and aligned bar history, computes the pair statistics, evaluates
// alerts and publishes one frame per topic.
package orchestrator

import (
	"context"
	"log"
	"time"

	"statarb-engine/internal/alert"
	"statarb-engine/internal/analytics"
	"statarb-engine/internal/feed"
	"statarb-engine/internal/ingest"
	"statarb-engine/internal/metrics"
	"statarb-engine/internal/model"
	"statarb-engine/internal/resample"
	redisstore "statarb-engine/internal/store/redis"
	"statarb-engine/internal/ws"
)

// Cadence is the broadcast interval.
const Cadence = time.Second

// historyBars is how many aligned 1s rows feed each analytics pass.
const historyBars = 60

// analyticsFrame is the raw combined payload on the analytics topic.
type analyticsFrame struct {
	Timestamp   string             `json:"timestamp"` // ISO-8601, second precision
	Prices      map[string]float64 `json:"prices"`
	Spread      float64            `json:"spread"`
	ZScore      float64            `json:"z_score"`
	Correlation float64            `json:"correlation"`
}

// Orchestrator wires the pipeline components together.
type Orchestrator struct {
	Feed      *feed.Client
	Ingest    *ingest.Engine
	Resample  *resample.Engine
	Analytics *analytics.Engine
	Alerts    *alert.Manager
	Hub       *ws.Hub
	Settings  *SettingsStore
	Mirror    *redisstore.Publisher // nil when disabled
	Metrics   *metrics.Metrics      // nil in tests
}

// New wires the cross-component plumbing: ticks flow into the buffers and
// the resampler, finalized bars hit the mirror and metrics, and alerts fan
// out to the alerts topic.
func New(o Orchestrator) *Orchestrator {
	out := &o

	o.Feed.SubscribeTicks(func(t model.Tick) {
		out.Ingest.Ingest(t)
		out.Resample.Apply(t)
	})

	if out.Metrics != nil {
		out.Ingest.OnTick = out.Metrics.TicksTotal.Inc
		out.Resample.OnLateTick = out.Metrics.LateTicks.Inc
		out.Feed.OnReconnect = out.Metrics.WSReconnects.Inc
		out.Hub.OnDrop = out.Metrics.SubscriberDrops.Inc
	}

	out.Resample.OnFinalized = func(b model.Bar) {
		if out.Metrics != nil {
			out.Metrics.BarsTotal.WithLabelValues(string(b.Interval)).Inc()
		}
		out.Mirror.PublishBar(b)
	}

	out.Alerts.Subscribe(func(a model.Alert) {
		out.Hub.PublishAs(ws.TopicAlerts, "alert", a)
		out.Mirror.PublishAlert(a)
		if out.Metrics != nil {
			out.Metrics.AlertsTotal.Inc()
		}
	})

	return out
}

// UpdateSettings replaces the control snapshot and starts tracking any
// newly selected symbols on the feed.
func (o *Orchestrator) UpdateSettings(next model.ControlSettings) {
	prev := o.Settings.Replace(next)

	known := make(map[string]bool, len(prev.SelectedSymbols))
	for _, s := range prev.SelectedSymbols {
		known[s] = true
	}
	for _, s := range next.SelectedSymbols {
		if !known[s] {
			o.Feed.AddSymbol(s)
		}
	}
	log.Printf("[orchestrator] settings updated: symbols=%v window=%d regression=%s threshold=%.2f",
		next.SelectedSymbols, next.WindowSize, next.RegressionType, next.ZScoreThreshold)
}

// Run drives the 1 Hz analytics loop until ctx is cancelled. A panic in one
// iteration is logged and the loop continues.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Println("[orchestrator] analytics loop started")
	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[orchestrator] analytics loop stopped")
			return
		case <-ticker.C:
			o.iterate()
		}
	}
}

func (o *Orchestrator) iterate() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] iteration panic: %v", r)
		}
	}()

	start := time.Now()
	cfg := o.Settings.Get()

	latest := o.Ingest.LatestPrices(nil)
	prices := make(map[string]float64, len(cfg.SelectedSymbols))
	for _, sym := range cfg.SelectedSymbols {
		if p, ok := latest[sym]; ok {
			prices[sym] = p
		}
	}

	// Fallbacks keep the combined frame publishable before the bar history
	// is deep enough for real analytics.
	var spread, zScore, correlation float64

	rows := o.Resample.PriceHistory(cfg.SelectedSymbols, model.Interval1s, historyBars)
	if len(rows) >= 2 {
		base, hedge := cfg.BasePair()

		sp := o.Analytics.AnalyzeRows(rows, base, hedge, cfg.ZScoreThreshold, cfg.RegressionType)
		cp := o.Analytics.CorrelationRows(rows, base, hedge)
		sum := o.Analytics.Summary(rows, cfg.SelectedSymbols, base, hedge, cfg.WindowSize)

		if sp != nil {
			spread, zScore = sp.Spread, sp.ZScore
			o.Hub.Publish(ws.TopicSpread, sp)
		}
		if cp != nil {
			correlation = cp.Correlation
			o.Hub.Publish(ws.TopicCorrelation, cp)
		}
		if sum != nil {
			o.Alerts.EvaluateSummary(*sum, cfg.ZScoreThreshold)
			o.Hub.Publish(ws.TopicSummary, sum)
		}
		if len(prices) > 0 {
			now := time.Now().UTC()
			o.Hub.Publish(ws.TopicPrices, model.PricePoint{
				Timestamp: now.Unix(),
				Time:      now.Format("15:04:05"),
				Prices:    prices,
			})
		}
	}

	if len(prices) > 0 {
		o.Hub.Publish(ws.TopicAnalytics, analyticsFrame{
			Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05"),
			Prices:      prices,
			Spread:      spread,
			ZScore:      zScore,
			Correlation: correlation,
		})
	}

	if o.Metrics != nil {
		o.Metrics.AnalyticsDur.Observe(time.Since(start).Seconds())
		o.Metrics.WSClients.Set(float64(o.Hub.TotalConnections()))
	}
}
