// Package alert evaluates analytics snapshots against trading thresholds
// and keeps a bounded, cooldown-guarded alert history.
package alert

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"statarb-engine/internal/model"
	"statarb-engine/internal/ringbuf"
)

// Defaults for the alert history and duplicate suppression.
const (
	DefaultMaxAlerts = 100
	DefaultCooldown  = 60 * time.Second
)

// Fixed rule thresholds applied on every summary evaluation.
const (
	minCorrelation = 0.5
	maxVolatility  = 500.0
)

// Manager owns the alert history and fan-out. A cooldown keyed on
// type:title:symbol keeps a repeating condition from flooding subscribers.
type Manager struct {
	cooldown time.Duration

	mu        sync.Mutex
	history   *ringbuf.Ring[model.Alert]
	lastFired map[string]time.Time
	callbacks []func(model.Alert)

	// now is the clock source; overridable in tests.
	now func() time.Time
}

// NewManager creates an alert manager. Non-positive arguments select the
// defaults.
func NewManager(maxAlerts int, cooldown time.Duration) *Manager {
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Manager{
		cooldown:  cooldown,
		history:   ringbuf.New[model.Alert](maxAlerts),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Subscribe registers a callback invoked with every new alert. Callbacks
// run on the evaluating goroutine; panics are contained per callback.
func (m *Manager) Subscribe(fn func(model.Alert)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	n := len(m.callbacks)
	m.mu.Unlock()
	log.Printf("[alert] subscriber registered (total=%d)", n)
}

// Create registers a new alert unless the cooldown for its key is still
// running. Returns nil when suppressed.
func (m *Manager) Create(a model.Alert) *model.Alert {
	key := a.Key()
	now := m.now().UTC()

	m.mu.Lock()
	if last, ok := m.lastFired[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return nil
	}
	a.ID = uuid.NewString()
	a.Timestamp = now.Format("15:04:05")
	m.history.Push(a)
	m.lastFired[key] = now
	callbacks := make([]func(model.Alert), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	log.Printf("[alert] [%s] %s - %s", a.Type, a.Title, a.Message)

	for _, fn := range callbacks {
		m.invoke(fn, a)
	}
	return &a
}

func (m *Manager) invoke(fn func(model.Alert), a model.Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[alert] callback panic: %v", r)
		}
	}()
	fn(a)
}

// EvaluateZScore fires a breach alert when |z| exceeds the threshold, or a
// warning when it passes 80% of it.
func (m *Manager) EvaluateZScore(sp model.SpreadPoint, threshold float64) {
	z := sp.ZScore
	abs := z
	if abs < 0 {
		abs = -abs
	}
	direction := "below"
	if z > 0 {
		direction = "above"
	}

	switch {
	case abs > threshold:
		m.Create(model.Alert{
			Type:  model.AlertBreach,
			Title: "Z-Score Threshold Breach",
			Message: fmt.Sprintf(
				"Z-Score (%.2fσ) is %s threshold (±%gσ). Mean reversion opportunity detected.",
				z, direction, threshold),
			Value:     z,
			Metric:    "z_score",
			Threshold: threshold,
			Direction: direction,
		})
	case abs > threshold*0.8:
		m.Create(model.Alert{
			Type:  model.AlertWarning,
			Title: "Z-Score Approaching Threshold",
			Message: fmt.Sprintf(
				"Z-Score (%.2fσ) is approaching threshold (±%gσ).", z, threshold),
			Value:     z,
			Metric:    "z_score",
			Threshold: threshold * 0.8,
			Direction: direction,
		})
	}
}

// EvaluateCorrelation warns when the pair correlation weakens below the
// minimum the spread strategy relies on.
func (m *Manager) EvaluateCorrelation(correlation, minThreshold float64) {
	abs := correlation
	if abs < 0 {
		abs = -abs
	}
	if abs >= minThreshold {
		return
	}
	m.Create(model.Alert{
		Type:  model.AlertWarning,
		Title: "Low Correlation Detected",
		Message: fmt.Sprintf(
			"Correlation (%.3f) is below threshold (%.3f). Spread strategy may be less reliable.",
			correlation, minThreshold),
		Value:     correlation,
		Metric:    "correlation",
		Threshold: minThreshold,
		Direction: "below",
	})
}

// EvaluateVolatility warns on a volatility spike above the cap.
func (m *Manager) EvaluateVolatility(volatility, maxThreshold float64) {
	if volatility <= maxThreshold {
		return
	}
	m.Create(model.Alert{
		Type:  model.AlertWarning,
		Title: "High Volatility Alert",
		Message: fmt.Sprintf(
			"Rolling volatility (%.2f) exceeds threshold (%.2f). Exercise caution.",
			volatility, maxThreshold),
		Value:     volatility,
		Metric:    "volatility",
		Threshold: maxThreshold,
		Direction: "above",
	})
}

// EvaluateSummary runs every rule against one analytics snapshot.
func (m *Manager) EvaluateSummary(sum model.SummaryStats, zThreshold float64) {
	now := m.now().UTC()
	m.EvaluateZScore(model.SpreadPoint{
		Timestamp:      now.UnixMilli(),
		Time:           now.Format("15:04:05"),
		Spread:         sum.Spread,
		ZScore:         sum.ZScore,
		UpperThreshold: zThreshold,
		LowerThreshold: -zThreshold,
	}, zThreshold)
	m.EvaluateCorrelation(sum.Correlation, minCorrelation)
	m.EvaluateVolatility(sum.RollingVolatility, maxVolatility)
}

// Recent returns up to limit alerts, newest first. limit <= 0 returns all.
func (m *Manager) Recent(limit int) []model.Alert {
	m.mu.Lock()
	alerts := m.history.Snapshot()
	m.mu.Unlock()

	// Reverse to newest-first.
	for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
		alerts[i], alerts[j] = alerts[j], alerts[i]
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}

// Clear drops the history and resets every cooldown.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.history.Clear()
	m.lastFired = make(map[string]time.Time)
	m.mu.Unlock()
	log.Println("[alert] cleared all alerts")
}
