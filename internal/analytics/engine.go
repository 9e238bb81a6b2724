package analytics

import (
	"log"
	"time"

	"statarb-engine/internal/model"
)

// Default window sizes.
const (
	DefaultWindow     = 20
	DefaultCorrWindow = 60
)

// Engine bundles the rolling-window configuration for the per-iteration
// analytics pass. Methods are pure functions of their inputs; the engine
// itself carries no mutable state and is safe for concurrent use.
type Engine struct {
	Window     int // z-score and rolling statistics window
	CorrWindow int // Pearson correlation window
}

// NewEngine creates an analytics engine. Non-positive windows select the
// defaults.
func NewEngine(window, corrWindow int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	if corrWindow <= 0 {
		corrWindow = DefaultCorrWindow
	}
	log.Printf("[analytics] engine ready (window=%d corrWindow=%d)", window, corrWindow)
	return &Engine{Window: window, CorrWindow: corrWindow}
}

// Series extracts the close-price series for one symbol from aligned price
// rows, skipping rows where the symbol is absent.
func Series(rows []model.PriceRow, symbol string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if p, ok := row.Closes[symbol]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Analyze runs the full spread analysis on a pair of price series: hedge
// ratio, spread and z-score. Returns nil when either series is shorter than
// the window or the numbers degenerate.
func (e *Engine) Analyze(base, hedge []float64, threshold float64, kind string) *model.SpreadPoint {
	if len(base) < e.Window || len(hedge) < e.Window {
		return nil
	}
	spread, _ := Spread(base, hedge, kind)
	if spread == nil {
		return nil
	}
	z := ZScore(spread, e.Window)
	if z == nil {
		return nil
	}

	now := time.Now().UTC()
	return &model.SpreadPoint{
		Timestamp:      now.UnixMilli(),
		Time:           now.Format("15:04:05"),
		Spread:         spread[len(spread)-1],
		ZScore:         *z,
		UpperThreshold: threshold,
		LowerThreshold: -threshold,
	}
}

// AnalyzeRows is Analyze applied to aligned price rows for a symbol pair.
func (e *Engine) AnalyzeRows(rows []model.PriceRow, base, hedge string, threshold float64, kind string) *model.SpreadPoint {
	if len(rows) == 0 {
		return nil
	}
	return e.Analyze(Series(rows, base), Series(rows, hedge), threshold, kind)
}

// CorrelationRows computes the rolling Pearson correlation point for a
// symbol pair, or nil when either series is shorter than the window.
func (e *Engine) CorrelationRows(rows []model.PriceRow, a, b string) *model.CorrelationPoint {
	if len(rows) == 0 {
		return nil
	}
	rho := Correlation(Series(rows, a), Series(rows, b), e.CorrWindow)
	if rho == nil {
		return nil
	}
	now := time.Now().UTC()
	return &model.CorrelationPoint{
		Timestamp:   now.UnixMilli(),
		Time:        now.Format("15:04:05"),
		Correlation: *rho,
	}
}

// Summary builds the combined per-iteration snapshot: latest price deltas
// per symbol plus spread, z-score, correlation and the base symbol's rolling
// statistics. The rolling mean/volatility use window, which tracks the live
// control-panel setting; non-positive values fall back to the engine window.
// Sub-metrics that lack data fall back to zero so the snapshot is always
// publishable. Returns nil with fewer than two rows.
func (e *Engine) Summary(rows []model.PriceRow, symbols []string, base, hedge string, window int) *model.SummaryStats {
	if len(rows) < 2 {
		return nil
	}
	if window <= 0 {
		window = e.Window
	}

	metrics := make([]model.MetricData, 0, len(symbols))
	for _, sym := range symbols {
		prices := Series(rows, sym)
		if len(prices) < 2 {
			continue
		}
		current, previous := prices[len(prices)-1], prices[len(prices)-2]
		change, changePct := PriceChange(current, previous)
		metrics = append(metrics, model.MetricData{
			Symbol:        sym,
			Price:         current,
			Change:        change,
			ChangePercent: changePct,
		})
	}

	out := &model.SummaryStats{LatestPrices: metrics}

	if sp := e.AnalyzeRows(rows, base, hedge, 2.0, RegressionOLS); sp != nil {
		out.Spread = sp.Spread
		out.ZScore = sp.ZScore
	}
	if cp := e.CorrelationRows(rows, base, hedge); cp != nil {
		out.Correlation = cp.Correlation
	}

	basePrices := Series(rows, base)
	if m := RollingMean(basePrices, window); m != nil {
		out.RollingMean = *m
	}
	if s := RollingStd(basePrices, window); s != nil {
		out.RollingVolatility = *s
	}
	return out
}
