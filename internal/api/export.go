package api

import (
	"bytes"
	"encoding/csv"
	"log"
	"net/http"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"statarb-engine/internal/analytics"
	"statarb-engine/internal/model"
)

// exportHedge is the fixed counterpart symbol for export analytics.
const exportHedge = "ETHUSDT"

// exportRow is one OHLCV record with the pair analytics attached. The
// spread, z-score and correlation are computed once per export and repeated
// on every row; per-row historical recomputation is deliberately not done.
type exportRow struct {
	Timestamp   string  `json:"timestamp" parquet:"timestamp"`
	Open        float64 `json:"open" parquet:"open"`
	High        float64 `json:"high" parquet:"high"`
	Low         float64 `json:"low" parquet:"low"`
	Close       float64 `json:"close" parquet:"close"`
	Volume      float64 `json:"volume" parquet:"volume"`
	Spread      float64 `json:"spread" parquet:"spread"`
	ZScore      float64 `json:"z_score" parquet:"z_score"`
	Correlation float64 `json:"correlation" parquet:"correlation"`
}

// buildExport assembles the export rows for one symbol from 1m bars.
// Returns nil when the symbol has no bars yet.
func (h *handlers) buildExport(symbol string, limit int) []exportRow {
	o := h.Orch
	bars := o.Resample.Bars(symbol, model.Interval1m, limit)
	if len(bars) == 0 {
		return nil
	}

	var spread, zScore, correlation float64
	rows := o.Resample.PriceHistory([]string{symbol, exportHedge}, model.Interval1m, limit)
	if len(rows) >= 2 {
		if sp := o.Analytics.AnalyzeRows(rows, symbol, exportHedge, 2.0, analytics.RegressionOLS); sp != nil {
			spread, zScore = sp.Spread, sp.ZScore
		}
		if cp := o.Analytics.CorrelationRows(rows, symbol, exportHedge); cp != nil {
			correlation = cp.Correlation
		}
	}

	out := make([]exportRow, len(bars))
	for i, b := range bars {
		out[i] = exportRow{
			Timestamp:   b.BucketStart.Format("2006-01-02T15:04:05"),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
			Spread:      spread,
			ZScore:      zScore,
			Correlation: correlation,
		}
	}
	return out
}

func (h *handlers) exportUnified(w http.ResponseWriter, r *http.Request) {
	format := queryStr(r, "format", "csv")
	limit := queryInt(r, "limit", 1000)

	cfg := h.Orch.Settings.Get()
	symbol := "BTCUSDT"
	if len(cfg.SelectedSymbols) > 0 {
		symbol = cfg.SelectedSymbols[0]
	}

	switch format {
	case "csv":
		h.serveCSV(w, symbol, limit)
	case "json":
		h.serveJSON(w, symbol, limit)
	case "parquet":
		h.serveParquet(w, symbol, limit)
	default:
		writeError(w, http.StatusBadRequest, "Unsupported format: "+format)
	}
}

func (h *handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.serveCSV(w, queryStr(r, "symbol", "BTCUSDT"), queryInt(r, "limit", 100))
}

func (h *handlers) exportJSON(w http.ResponseWriter, r *http.Request) {
	h.serveJSON(w, queryStr(r, "symbol", "BTCUSDT"), queryInt(r, "limit", 50))
}

func (h *handlers) exportParquet(w http.ResponseWriter, r *http.Request) {
	h.serveParquet(w, queryStr(r, "symbol", "BTCUSDT"), queryInt(r, "limit", 1000))
}

var csvHeader = []string{
	"timestamp", "open", "high", "low", "close", "volume",
	"spread", "z_score", "correlation",
}

func (h *handlers) serveCSV(w http.ResponseWriter, symbol string, limit int) {
	rows := h.buildExport(symbol, limit)
	if rows == nil {
		writeError(w, http.StatusNotFound, "No data available")
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(csvHeader)
	for _, row := range rows {
		cw.Write([]string{
			row.Timestamp,
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			formatFloat(row.Volume),
			formatFloat(row.Spread),
			formatFloat(row.ZScore),
			formatFloat(row.Correlation),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=market_data_"+symbol+".csv")
	w.Write(buf.Bytes())
}

func (h *handlers) serveJSON(w http.ResponseWriter, symbol string, limit int) {
	rows := h.buildExport(symbol, limit)
	if rows == nil {
		writeError(w, http.StatusNotFound, "No data available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"interval": "1m",
		"data":     rows,
	})
}

func (h *handlers) serveParquet(w http.ResponseWriter, symbol string, limit int) {
	rows := h.buildExport(symbol, limit)
	if rows == nil {
		writeError(w, http.StatusNotFound, "No data available")
		return
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		log.Printf("[api] parquet export failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=market_analytics_"+symbol+".parquet")
	w.Write(buf.Bytes())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
