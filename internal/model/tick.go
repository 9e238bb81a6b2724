package model

import "time"

// Tick represents a single executed trade from the Binance futures stream,
// normalized from the raw combined-stream frame.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	TradeTime time.Time `json:"trade_time"` // exchange trade time (T), not event time
}
