package ingest

import (
	"log"
	"sync"

	"statarb-engine/internal/model"
)

// Engine owns the symbol→buffer map and coordinates tick ingestion.
type Engine struct {
	capacity int

	mu      sync.RWMutex
	buffers map[string]*Buffer

	// OnTick is an optional metrics hook invoked after each ingest.
	OnTick func()
}

// NewEngine creates an ingestion engine. capacity <= 0 selects the
// per-buffer default.
func NewEngine(capacity int) *Engine {
	return &Engine{
		capacity: capacity,
		buffers:  make(map[string]*Buffer),
	}
}

// buffer returns the buffer for a symbol, creating it on first use.
func (e *Engine) buffer(symbol string) *Buffer {
	e.mu.RLock()
	b, ok := e.buffers[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok = e.buffers[symbol]; ok {
		return b
	}
	b = NewBuffer(symbol, e.capacity)
	e.buffers[symbol] = b
	log.Printf("[ingest] created tick buffer for %s", symbol)
	return b
}

// Ingest appends a tick to its symbol's buffer.
func (e *Engine) Ingest(tick model.Tick) {
	e.buffer(tick.Symbol).Add(tick)
	if e.OnTick != nil {
		e.OnTick()
	}
}

// Get returns the buffer for a symbol, or nil if none exists yet.
func (e *Engine) Get(symbol string) *Buffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buffers[symbol]
}

// LatestPrices returns the most recent price per symbol. A nil symbol list
// queries every active buffer. Symbols with no ticks yet are omitted.
func (e *Engine) LatestPrices(symbols []string) map[string]float64 {
	if symbols == nil {
		symbols = e.ActiveSymbols()
	}

	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		b := e.Get(sym)
		if b == nil {
			continue
		}
		if p, ok := b.LastPrice(); ok {
			prices[sym] = p
		}
	}
	return prices
}

// ActiveSymbols lists the symbols currently holding a buffer.
func (e *Engine) ActiveSymbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	syms := make([]string, 0, len(e.buffers))
	for sym := range e.buffers {
		syms = append(syms, sym)
	}
	return syms
}

// BufferStats returns per-symbol buffer statistics.
func (e *Engine) BufferStats() map[string]Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := make(map[string]Stats, len(e.buffers))
	for sym, b := range e.buffers {
		stats[sym] = b.Stats()
	}
	return stats
}
