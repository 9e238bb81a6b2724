// Package resample folds normalized ticks into 1-second and 1-minute OHLCV
// bars. It owns the per-symbol bar state: one mutable "current" bar per
// (interval, symbol) plus a bounded history of finalized bars. A single fold
// routine handles both intervals; the minute path additionally relies on the
// Finalizer to close bars that receive no further ticks.
package resample

import (
	"log"
	"sort"
	"sync"
	"time"

	"statarb-engine/internal/model"
	"statarb-engine/internal/ringbuf"
)

// DefaultMaxBars is the finalized-bar retention bound per (interval, symbol).
const DefaultMaxBars = 1000

var intervals = []model.Interval{model.Interval1s, model.Interval1m}

// symbolState holds the bar state for one (interval, symbol) pair.
type symbolState struct {
	current   *model.Bar
	finalized *ringbuf.Ring[model.Bar]
}

// Engine converts tick data to OHLCV bars at 1s and 1m granularity.
// Goroutine-safe; a single mutex guards all bar state.
type Engine struct {
	maxBars int

	mu     sync.Mutex
	states map[model.Interval]map[string]*symbolState

	// OnFinalized is an optional hook invoked (outside the lock) with each
	// finalized bar. Used for metrics and the Redis mirror.
	OnFinalized func(model.Bar)

	// OnLateTick is an optional hook for dropped late ticks.
	OnLateTick func()
}

// NewEngine creates a resampling engine. maxBars <= 0 selects the default.
func NewEngine(maxBars int) *Engine {
	if maxBars <= 0 {
		maxBars = DefaultMaxBars
	}
	states := make(map[model.Interval]map[string]*symbolState, len(intervals))
	for _, iv := range intervals {
		states[iv] = make(map[string]*symbolState, 8)
	}
	return &Engine{maxBars: maxBars, states: states}
}

// Apply folds one tick into the current 1s and 1m bars for its symbol.
func (e *Engine) Apply(tick model.Tick) {
	var done []model.Bar

	e.mu.Lock()
	for _, iv := range intervals {
		if b, ok := e.fold(iv, tick); ok {
			done = append(done, b)
		}
	}
	e.mu.Unlock()

	if e.OnFinalized != nil {
		for _, b := range done {
			e.OnFinalized(b)
		}
	}
}

// fold is the per-interval hot path. Caller holds e.mu.
// Returns a finalized bar when the tick rolled the bucket over.
func (e *Engine) fold(iv model.Interval, tick model.Tick) (model.Bar, bool) {
	bucket := iv.Bucket(tick.TradeTime)
	st := e.state(iv, tick.Symbol)

	if st.current == nil {
		bar := model.NewBar(tick.Symbol, iv, bucket, tick.Price, tick.Qty)
		st.current = &bar
		return model.Bar{}, false
	}

	switch {
	case st.current.BucketStart.Equal(bucket):
		st.current.Merge(tick.Price, tick.Qty)
		return model.Bar{}, false

	case st.current.BucketStart.Before(bucket):
		// New bucket: finalize the old bar, then open a new one.
		closed := *st.current
		finalized := e.archive(st, closed)
		bar := model.NewBar(tick.Symbol, iv, bucket, tick.Price, tick.Qty)
		st.current = &bar
		return closed, finalized

	default:
		// Late tick for an already-closed bucket: never rewrite history.
		if e.OnLateTick != nil {
			e.OnLateTick()
		}
		return model.Bar{}, false
	}
}

// archive appends a bar to the finalized history unless a bar with the same
// bucket start is already there. Caller holds e.mu. Reports whether the bar
// was stored.
func (e *Engine) archive(st *symbolState, bar model.Bar) bool {
	for i := 0; i < st.finalized.Len(); i++ {
		if st.finalized.At(i).BucketStart.Equal(bar.BucketStart) {
			return false
		}
	}
	st.finalized.Push(bar)
	return true
}

// state returns the per-(interval, symbol) state, creating it on first use.
// Caller holds e.mu.
func (e *Engine) state(iv model.Interval, symbol string) *symbolState {
	st, ok := e.states[iv][symbol]
	if !ok {
		st = &symbolState{finalized: ringbuf.New[model.Bar](e.maxBars)}
		e.states[iv][symbol] = st
		if iv == model.Interval1m {
			log.Printf("[resample] %s: started collecting %s bars", symbol, iv)
		}
	}
	return st
}

// Bars returns up to n most recent bars for a symbol: the finalized history
// plus the current forming bar, sorted by bucket start ascending. Values are
// copies.
func (e *Engine) Bars(symbol string, iv model.Interval, n int) []model.Bar {
	e.mu.Lock()
	st, ok := e.states[iv][symbol]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	bars := st.finalized.Snapshot()
	if st.current != nil {
		bars = append(bars, *st.current)
	}
	e.mu.Unlock()

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].BucketStart.Before(bars[j].BucketStart)
	})
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars
}

// PriceHistory returns the aligned close-price history for a set of symbols.
// Alignment is positional by tail offset: each symbol contributes its last
// min-length bars by index, and the row timestamp comes from the first
// symbol's bar. Returns nil when any symbol has no bars.
func (e *Engine) PriceHistory(symbols []string, iv model.Interval, n int) []model.PriceRow {
	if len(symbols) == 0 {
		return nil
	}

	perSymbol := make([][]model.Bar, len(symbols))
	minLen := -1
	for i, sym := range symbols {
		bars := e.Bars(sym, iv, n)
		perSymbol[i] = bars
		if minLen < 0 || len(bars) < minLen {
			minLen = len(bars)
		}
	}
	if minLen <= 0 {
		return nil
	}

	rows := make([]model.PriceRow, 0, minLen)
	for off := minLen; off >= 1; off-- {
		row := model.PriceRow{Closes: make(map[string]float64, len(symbols))}
		for i, sym := range symbols {
			bars := perSymbol[i]
			bar := bars[len(bars)-off]
			if i == 0 {
				row.BucketStart = bar.BucketStart
			}
			row.Closes[sym] = bar.Close
		}
		rows = append(rows, row)
	}
	return rows
}

// CurrentBar returns a copy of the forming bar for (symbol, interval),
// or false when none is open.
func (e *Engine) CurrentBar(symbol string, iv model.Interval) (model.Bar, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[iv][symbol]
	if !ok || st.current == nil {
		return model.Bar{}, false
	}
	return *st.current, true
}

// FinalizedCount returns the number of archived bars for (symbol, interval).
func (e *Engine) FinalizedCount(symbol string, iv model.Interval) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[iv][symbol]
	if !ok {
		return 0
	}
	return st.finalized.Len()
}

// sweepMinuteBars finalizes stale 1m bars against the wall clock. Called by
// the Finalizer; now is passed in for testability.
func (e *Engine) sweepMinuteBars(now time.Time) []model.Bar {
	currentMinute := now.Truncate(time.Minute)
	previousMinute := currentMinute.Add(-time.Minute)

	var done []model.Bar

	e.mu.Lock()
	for sym, st := range e.states[model.Interval1m] {
		if st.current == nil {
			continue
		}
		bucket := st.current.BucketStart
		stale := bucket.Before(previousMinute)
		// The 5-second guard absorbs late ticks for the just-closed minute.
		justClosed := bucket.Equal(previousMinute) && now.Second() > 5
		if !stale && !justClosed {
			continue
		}

		closed := *st.current
		stored := e.archive(st, closed)
		st.current = nil
		if stored {
			done = append(done, closed)
			log.Printf("[resample] finalizer stored %s bar for %s at %s (total=%d)",
				closed.Interval, sym, closed.BucketStart.Format("15:04:05"), st.finalized.Len())
		}
	}
	e.mu.Unlock()

	if e.OnFinalized != nil {
		for _, b := range done {
			e.OnFinalized(b)
		}
	}
	return done
}
