package feed

import (
	"errors"
	"testing"
	"time"

	"statarb-engine/internal/model"
)

func TestParseTradeNormalization(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"67521.45","q":"0.1","T":1700000000000,"X":"MARKET"}}`)

	tick, err := parseTrade(raw)
	if err != nil {
		t.Fatal(err)
	}
	if tick.Symbol != "BTCUSDT" {
		t.Errorf("symbol: got %q, want BTCUSDT", tick.Symbol)
	}
	if tick.Price != 67521.45 {
		t.Errorf("price: got %v, want 67521.45", tick.Price)
	}
	if tick.Qty != 0.1 {
		t.Errorf("qty: got %v, want 0.1", tick.Qty)
	}
	if want := time.UnixMilli(1700000000000).UTC(); !tick.TradeTime.Equal(want) {
		t.Errorf("trade time: got %v, want %v", tick.TradeTime, want)
	}
}

func TestParseTradeSkipsFrames(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"non-trade event", `{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","p":"1","q":"1","T":1700000000000}}`},
		{"liquidation print", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"0","q":"0","T":1700000000000,"X":"NA"}}`},
		{"control message", `{"result":null,"id":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseTrade([]byte(tc.raw))
			if !errors.Is(err, errSkipped) {
				t.Errorf("got %v, want errSkipped", err)
			}
		})
	}
}

func TestParseTradeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"zero price", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"0","q":"0.1","T":1700000000000,"X":"MARKET"}}`},
		{"zero timestamp", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"100","q":"0.1","T":0,"X":"MARKET"}}`},
		{"missing price", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","q":"0.1","T":1700000000000,"X":"MARKET"}}`},
		{"garbage price", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"abc","q":"0.1","T":1700000000000,"X":"MARKET"}}`},
		{"negative qty", `{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"100","q":"-0.1","T":1700000000000,"X":"MARKET"}}`},
		{"not json", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseTrade([]byte(tc.raw))
			if err == nil || errors.Is(err, errSkipped) {
				t.Errorf("got %v, want a validation error", err)
			}
		})
	}
}

func TestStreamURL(t *testing.T) {
	c := NewClient([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})

	url, err := c.streamURL()
	if err != nil {
		t.Fatal(err)
	}
	want := "wss://fstream.binance.com/stream?streams=btcusdt@trade/ethusdt@trade/solusdt@trade"
	if url != want {
		t.Errorf("url:\n got %s\nwant %s", url, want)
	}
}

func TestStreamURLNoSymbols(t *testing.T) {
	c := NewClient(nil)
	if _, err := c.streamURL(); err == nil {
		t.Error("expected an error with no symbols")
	}
}

func TestDispatchFiltersUntracked(t *testing.T) {
	c := NewClient([]string{"BTCUSDT"})
	var got []model.Tick
	c.SubscribeTicks(func(tk model.Tick) { got = append(got, tk) })

	c.handleMessage([]byte(`{"stream":"ethusdt@trade","data":{"e":"trade","s":"ETHUSDT","p":"3456.78","q":"1","T":1700000000000,"X":"MARKET"}}`))
	if len(got) != 0 {
		t.Fatalf("untracked symbol must not dispatch, got %d ticks", len(got))
	}

	c.AddSymbol("ethusdt")
	c.handleMessage([]byte(`{"stream":"ethusdt@trade","data":{"e":"trade","s":"ETHUSDT","p":"3456.78","q":"1","T":1700000000000,"X":"MARKET"}}`))
	if len(got) != 1 || got[0].Symbol != "ETHUSDT" {
		t.Fatalf("expected 1 ETHUSDT tick, got %+v", got)
	}
}

func TestDispatchPanicContained(t *testing.T) {
	c := NewClient([]string{"BTCUSDT"})
	var delivered int
	c.SubscribeTicks(func(model.Tick) { panic("boom") })
	c.SubscribeTicks(func(model.Tick) { delivered++ })

	c.handleMessage([]byte(`{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT","p":"100","q":"1","T":1700000000000,"X":"MARKET"}}`))
	if delivered != 1 {
		t.Errorf("second callback should run despite the first panicking, got %d", delivered)
	}
	if c.Stats().MessageCount != 1 {
		t.Errorf("message count: got %d, want 1", c.Stats().MessageCount)
	}
}
