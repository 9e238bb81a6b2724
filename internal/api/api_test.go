package api

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"statarb-engine/internal/alert"
	"statarb-engine/internal/analytics"
	"statarb-engine/internal/feed"
	"statarb-engine/internal/ingest"
	"statarb-engine/internal/model"
	"statarb-engine/internal/orchestrator"
	"statarb-engine/internal/resample"
	"statarb-engine/internal/ws"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *orchestrator.Orchestrator) {
	t.Helper()
	o := orchestrator.New(orchestrator.Orchestrator{
		Feed:      feed.NewClient([]string{"BTCUSDT", "ETHUSDT"}),
		Ingest:    ingest.NewEngine(0),
		Resample:  resample.NewEngine(0),
		Analytics: analytics.NewEngine(20, 60),
		Alerts:    alert.NewManager(0, 0),
		Hub:       ws.NewHub(),
		Settings:  orchestrator.NewSettingsStore(),
	})
	return NewRouter(Deps{Orch: o, StartedAt: time.Now()}), o
}

func seedMinuteBars(o *orchestrator.Orchestrator, minutes int) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i <= minutes; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		o.Resample.Apply(model.Tick{Symbol: "BTCUSDT", Price: 67000 + float64(i), Qty: 1, TradeTime: ts})
		o.Resample.Apply(model.Tick{Symbol: "ETHUSDT", Price: 3400 + float64(i), Qty: 1, TradeTime: ts})
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux, o := newTestRouter(t)
	o.Ingest.Ingest(model.Tick{Symbol: "BTCUSDT", Price: 100, Qty: 1, TradeTime: time.Now().UTC()})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var hc model.HealthCheck
	if err := json.Unmarshal(rec.Body.Bytes(), &hc); err != nil {
		t.Fatal(err)
	}
	if hc.Status != "healthy" {
		t.Errorf("status field: got %q", hc.Status)
	}
	if len(hc.ActiveSymbols) != 1 || hc.ActiveSymbols[0] != "BTCUSDT" {
		t.Errorf("active symbols: got %v", hc.ActiveSymbols)
	}
	if hc.BinanceConnected {
		t.Error("feed is not connected in tests")
	}
}

func TestUpdateSettings(t *testing.T) {
	mux, o := newTestRouter(t)

	body := `{"selectedSymbols":["BTCUSDT","SOLUSDT"],"timeframe":"1m","windowSize":30,"regressionType":"robust","zScoreThreshold":1.8,"isLive":true}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/settings", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	got := o.Settings.Get()
	if got.RegressionType != "robust" || got.ZScoreThreshold != 1.8 {
		t.Errorf("settings not applied: %+v", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/settings", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid payload: got %d, want 400", rec.Code)
	}
}

func TestAlertsEndpoint(t *testing.T) {
	mux, o := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty history should encode as [], got %s", body)
	}

	o.Alerts.EvaluateSummary(model.SummaryStats{ZScore: 4.25, Correlation: 0.9}, 2.0)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts?limit=5", nil))
	var alerts []model.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].Metric != "z_score" {
		t.Errorf("alerts: %+v", alerts)
	}
}

func TestExportCSV(t *testing.T) {
	mux, o := newTestRouter(t)
	seedMinuteBars(o, 5)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/export/csv?symbol=BTCUSDT&limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: got %q", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := "timestamp,open,high,low,close,volume,spread,z_score,correlation"
	if strings.Join(records[0], ",") != wantHeader {
		t.Errorf("header: got %v", records[0])
	}
	// 5 finalized minute bars + the forming one.
	if len(records) != 7 {
		t.Fatalf("rows: got %d, want 7", len(records))
	}
	// Analytics columns are constant across rows.
	for i := 2; i < len(records); i++ {
		if records[i][6] != records[1][6] || records[i][7] != records[1][7] || records[i][8] != records[1][8] {
			t.Errorf("analytics columns differ between rows 1 and %d: %v vs %v", i, records[1], records[i])
		}
	}
}

func TestExportJSONShape(t *testing.T) {
	mux, o := newTestRouter(t)
	seedMinuteBars(o, 3)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/export/json?symbol=BTCUSDT", nil))

	var resp struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Data     []struct {
			Timestamp string  `json:"timestamp"`
			Open      float64 `json:"open"`
			ZScore    float64 `json:"z_score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Symbol != "BTCUSDT" || resp.Interval != "1m" {
		t.Errorf("envelope: %+v", resp)
	}
	// 3 finalized minute bars + the forming one.
	if len(resp.Data) != 4 {
		t.Fatalf("rows: got %d, want 4", len(resp.Data))
	}
	if resp.Data[0].Timestamp != "2025-06-02T09:00:00" {
		t.Errorf("timestamp: got %q", resp.Data[0].Timestamp)
	}
	if resp.Data[0].Open != 67000 {
		t.Errorf("open: got %v", resp.Data[0].Open)
	}
}

func TestExportNoData(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/export/csv?symbol=BTCUSDT", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No data available") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestExportUnifiedRouting(t *testing.T) {
	mux, o := newTestRouter(t)
	seedMinuteBars(o, 3)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/export?format=json&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("json format: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/export?format=xml", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported format: got %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unsupported format") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestExportParquetSmoke(t *testing.T) {
	mux, o := newTestRouter(t)
	seedMinuteBars(o, 3)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/export/parquet?symbol=BTCUSDT", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a non-empty parquet payload")
	}
	// Parquet files end with the PAR1 magic.
	body := rec.Body.Bytes()
	if string(body[len(body)-4:]) != "PAR1" {
		t.Error("payload does not look like a parquet file")
	}
}

func TestDebugBars(t *testing.T) {
	mux, o := newTestRouter(t)
	seedMinuteBars(o, 2)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/debug/bars?symbol=BTCUSDT&interval=1m", nil))

	var resp struct {
		Symbol        string `json:"symbol"`
		TotalBars     int    `json:"total_bars"`
		CompleteBars  int    `json:"complete_bars"`
		HasIncomplete bool   `json:"has_incomplete"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalBars != 3 || resp.CompleteBars != 2 || !resp.HasIncomplete {
		t.Errorf("debug response: %+v", resp)
	}
}

func TestWebsocketUnknownTopic(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/ws/candles", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}
