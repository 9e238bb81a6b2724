package ingest

import (
	"testing"
	"time"

	"statarb-engine/internal/model"
)

func tick(sym string, price float64, ts time.Time) model.Tick {
	return model.Tick{Symbol: sym, Price: price, Qty: 1, TradeTime: ts}
}

func TestBufferAppendAndLast(t *testing.T) {
	b := NewBuffer("BTCUSDT", 100)
	now := time.Now().UTC()

	b.Add(tick("BTCUSDT", 100, now))
	b.Add(tick("BTCUSDT", 101, now.Add(time.Second)))

	if b.Len() != 2 {
		t.Fatalf("expected len=2, got %d", b.Len())
	}
	price, ok := b.LastPrice()
	if !ok || price != 101 {
		t.Errorf("LastPrice: got %v ok=%v, want 101 true", price, ok)
	}
	all := b.All()
	if all[len(all)-1].Price != 101 {
		t.Errorf("last element: got %v, want 101", all[len(all)-1].Price)
	}
}

func TestBufferCapacityEviction(t *testing.T) {
	const capacity = 50
	b := NewBuffer("BTCUSDT", capacity)
	now := time.Now().UTC()

	for i := 0; i < capacity*2; i++ {
		b.Add(tick("BTCUSDT", float64(i), now.Add(time.Duration(i)*time.Millisecond)))
	}

	if b.Len() != capacity {
		t.Fatalf("expected len=%d after overflow, got %d", capacity, b.Len())
	}
	all := b.All()
	// Oldest-first eviction: the first retained tick is #capacity.
	if all[0].Price != float64(capacity) {
		t.Errorf("oldest retained: got %v, want %v", all[0].Price, capacity)
	}
	if all[len(all)-1].Price != float64(capacity*2-1) {
		t.Errorf("newest retained: got %v, want %v", all[len(all)-1].Price, capacity*2-1)
	}
}

func TestBufferLatestN(t *testing.T) {
	b := NewBuffer("ETHUSDT", 100)
	now := time.Now().UTC()
	for i := 0; i < 10; i++ {
		b.Add(tick("ETHUSDT", float64(i), now.Add(time.Duration(i)*time.Second)))
	}

	latest := b.LatestN(3)
	if len(latest) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(latest))
	}
	for i, want := range []float64{7, 8, 9} {
		if latest[i].Price != want {
			t.Errorf("latest[%d]: got %v, want %v", i, latest[i].Price, want)
		}
	}
}

func TestBufferRange(t *testing.T) {
	b := NewBuffer("ETHUSDT", 100)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		b.Add(tick("ETHUSDT", float64(i), base.Add(time.Duration(i)*time.Second)))
	}

	got := b.Range(base.Add(2*time.Second), base.Add(5*time.Second))
	if len(got) != 4 {
		t.Fatalf("expected 4 ticks in range, got %d", len(got))
	}
	if got[0].Price != 2 || got[3].Price != 5 {
		t.Errorf("range bounds: got [%v..%v], want [2..5]", got[0].Price, got[3].Price)
	}
}

func TestEngineLatestPrices(t *testing.T) {
	e := NewEngine(100)
	now := time.Now().UTC()

	e.Ingest(tick("BTCUSDT", 67521.45, now))
	e.Ingest(tick("ETHUSDT", 3456.78, now))
	e.Ingest(tick("BTCUSDT", 67530.00, now.Add(time.Second)))

	prices := e.LatestPrices([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	if prices["BTCUSDT"] != 67530.00 {
		t.Errorf("BTCUSDT: got %v, want 67530.00", prices["BTCUSDT"])
	}
	if prices["ETHUSDT"] != 3456.78 {
		t.Errorf("ETHUSDT: got %v, want 3456.78", prices["ETHUSDT"])
	}
	if _, ok := prices["SOLUSDT"]; ok {
		t.Error("SOLUSDT should be absent: no ticks ingested")
	}
}

func TestEngineStats(t *testing.T) {
	e := NewEngine(100)
	e.Ingest(tick("BTCUSDT", 100, time.Now().UTC()))

	stats := e.BufferStats()
	s, ok := stats["BTCUSDT"]
	if !ok {
		t.Fatal("expected stats for BTCUSDT")
	}
	if s.TotalTicks != 1 || s.BufferSize != 1 {
		t.Errorf("stats: got total=%d size=%d, want 1/1", s.TotalTicks, s.BufferSize)
	}
	if s.LastPrice != 100 {
		t.Errorf("stats last price: got %v, want 100", s.LastPrice)
	}
}
