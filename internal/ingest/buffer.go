// Package ingest maintains per-symbol bounded buffers of recent normalized
// ticks. Buffers are the single owner of raw tick history; every read
// returns a copy so callers never hold references into the ring.
package ingest

import (
	"sync"
	"time"

	"statarb-engine/internal/model"
	"statarb-engine/internal/ringbuf"
)

// DefaultCapacity is the per-symbol tick retention bound.
const DefaultCapacity = 10000

// Buffer is a bounded FIFO of ticks for one symbol. Eviction is strictly
// oldest-first; within a symbol ticks are retained in ingest order.
type Buffer struct {
	symbol string

	mu        sync.Mutex
	ticks     *ringbuf.Ring[model.Tick]
	lastTick  model.Tick
	hasTick   bool
	tickCount uint64
}

// NewBuffer creates a buffer for one symbol. capacity <= 0 selects the default.
func NewBuffer(symbol string, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		symbol: symbol,
		ticks:  ringbuf.New[model.Tick](capacity),
	}
}

// Add appends a tick, evicting the oldest when full.
func (b *Buffer) Add(tick model.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks.Push(tick)
	b.lastTick = tick
	b.hasTick = true
	b.tickCount++
}

// LatestN returns a copy of the newest n ticks, oldest first.
func (b *Buffer) LatestN(n int) []model.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.TailN(n)
}

// All returns a copy of every buffered tick, oldest first.
func (b *Buffer) All() []model.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.Snapshot()
}

// Range returns the ticks whose trade time falls in [from, to], inclusive.
func (b *Buffer) Range(from, to time.Time) []model.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []model.Tick
	for i := 0; i < b.ticks.Len(); i++ {
		t := b.ticks.At(i)
		if t.TradeTime.Before(from) || t.TradeTime.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// LastPrice returns the most recent trade price, or false when no tick
// has been ingested yet.
func (b *Buffer) LastPrice() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasTick {
		return 0, false
	}
	return b.lastTick.Price, true
}

// Len returns the current buffer occupancy.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.Len()
}

// Stats describes one buffer for the debug/health surface.
type Stats struct {
	Symbol        string  `json:"symbol"`
	BufferSize    int     `json:"buffer_size"`
	TotalTicks    uint64  `json:"total_ticks"`
	LastPrice     float64 `json:"last_price,omitempty"`
	LastTimestamp string  `json:"last_timestamp,omitempty"`
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Symbol:     b.symbol,
		BufferSize: b.ticks.Len(),
		TotalTicks: b.tickCount,
	}
	if b.hasTick {
		s.LastPrice = b.lastTick.Price
		s.LastTimestamp = b.lastTick.TradeTime.UTC().Format(time.RFC3339Nano)
	}
	return s
}
