package model

import (
	"encoding/json"
	"time"
)

// Interval identifies a resampling bucket width.
type Interval string

const (
	Interval1s Interval = "1s"
	Interval1m Interval = "1m"
)

// Duration returns the bucket width as a time.Duration.
func (i Interval) Duration() time.Duration {
	if i == Interval1m {
		return time.Minute
	}
	return time.Second
}

// Bucket floors t to the interval boundary.
func (i Interval) Bucket(t time.Time) time.Time {
	return t.Truncate(i.Duration())
}

// Bar is an OHLCV candle for a single symbol and interval.
// Invariants: Low <= Open <= High, Low <= Close <= High, Volume >= 0,
// BucketStart is interval-aligned.
type Bar struct {
	Symbol      string    `json:"symbol"`
	Interval    Interval  `json:"interval"`
	BucketStart time.Time `json:"timestamp"` // bucket start (UTC, interval-aligned)
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
}

// NewBar opens a bar from the first tick of a bucket.
func NewBar(sym string, iv Interval, bucket time.Time, price, qty float64) Bar {
	return Bar{
		Symbol:      sym,
		Interval:    iv,
		BucketStart: bucket,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      qty,
	}
}

// Merge folds a later tick of the same bucket into the bar.
func (b *Bar) Merge(price, qty float64) {
	if price > b.High {
		b.High = price
	}
	if price < b.Low {
		b.Low = price
	}
	b.Close = price
	b.Volume += qty
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// PriceRow is one row of an aligned multi-symbol close-price history.
// Alignment is positional by tail offset, not by timestamp intersection:
// the analytics depend on that contract.
type PriceRow struct {
	BucketStart time.Time          `json:"timestamp"`
	Closes      map[string]float64 `json:"closes"`
}
