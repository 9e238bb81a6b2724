package model

import "encoding/json"

// DTOs mirrored by the frontend. Field names are part of the wire contract;
// keep the camelCase JSON tags stable.

// SpreadPoint carries the latest spread and z-score of the pair.
type SpreadPoint struct {
	Timestamp      int64   `json:"timestamp"` // ms since epoch
	Time           string  `json:"time"`      // HH:MM:SS
	Spread         float64 `json:"spread"`
	ZScore         float64 `json:"zScore"`
	UpperThreshold float64 `json:"upperThreshold"`
	LowerThreshold float64 `json:"lowerThreshold"`
}

// CorrelationPoint carries the rolling Pearson correlation of the pair.
type CorrelationPoint struct {
	Timestamp   int64   `json:"timestamp"`
	Time        string  `json:"time"`
	Correlation float64 `json:"correlation"`
}

// MetricData is the latest price snapshot for one symbol.
type MetricData struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// SummaryStats is the combined per-iteration analytics snapshot.
type SummaryStats struct {
	LatestPrices      []MetricData `json:"latestPrices"`
	Spread            float64      `json:"spread"`
	ZScore            float64      `json:"zScore"`
	RollingMean       float64      `json:"rollingMean"`
	RollingVolatility float64      `json:"rollingVolatility"`
	Correlation       float64      `json:"correlation"`
}

// ADFResult holds the outcome of an Augmented Dickey-Fuller stationarity test.
type ADFResult struct {
	Statistic      float64            `json:"adf_statistic"`
	PValue         float64            `json:"p_value"`
	Stationary     bool               `json:"stationary"`
	CriticalValues map[string]float64 `json:"critical_values"` // keys "1%", "5%", "10%"
	Interpretation string             `json:"interpretation,omitempty"`
	Err            string             `json:"error,omitempty"`
}

// PricePoint is the per-tick price broadcast for the selected symbols.
type PricePoint struct {
	Timestamp int64              `json:"timestamp"` // seconds since epoch
	Time      string             `json:"time"`      // HH:MM:SS
	Prices    map[string]float64 `json:"-"`
}

// MarshalJSON flattens Prices into the top-level object, so the wire shape
// is {"timestamp":…, "time":"…", "BTCUSDT":67521.45, …}.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Prices)+2)
	out["timestamp"] = p.Timestamp
	out["time"] = p.Time
	for sym, price := range p.Prices {
		out[sym] = price
	}
	return json.Marshal(out)
}
