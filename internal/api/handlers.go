package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"statarb-engine/internal/model"
	"statarb-engine/internal/ws"
)

type handlers struct {
	Deps
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "Quantitative Market Analytics API",
		"version": "1.0.0",
		"status":  "running",
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	o := h.Orch
	writeJSON(w, http.StatusOK, model.HealthCheck{
		Status:              "healthy",
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		BinanceConnected:    o.Feed.Connected(),
		ActiveSymbols:       o.Ingest.ActiveSymbols(),
		FrontendConnections: o.Hub.TotalConnections(),
		UptimeSeconds:       time.Since(h.StartedAt).Seconds(),
	})
}

func (h *handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	var next model.ControlSettings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	h.Orch.UpdateSettings(next)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"message":  "Settings updated",
		"settings": next,
	})
}

func (h *handlers) alerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	alerts := h.Orch.Alerts.Recent(limit)
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *handlers) debugBars(w http.ResponseWriter, r *http.Request) {
	symbol := queryStr(r, "symbol", "BTCUSDT")
	interval := model.Interval(queryStr(r, "interval", "1m"))

	bars := h.Orch.Resample.Bars(symbol, interval, 60)
	_, hasCurrent := h.Orch.Resample.CurrentBar(symbol, interval)

	tail := bars
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":         symbol,
		"interval":       interval,
		"total_bars":     len(bars),
		"complete_bars":  h.Orch.Resample.FinalizedCount(symbol, interval),
		"has_incomplete": hasCurrent,
		"bars":           tail,
	})
}

func (h *handlers) websocket(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")
	if !ws.ValidTopic(topic) {
		writeError(w, http.StatusNotFound, "unknown topic: "+topic)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] ws upgrade failed: %v", err)
		return
	}

	sess := ws.NewConn(conn)
	if err := h.Orch.Hub.Register(topic, sess); err != nil {
		sess.Close()
		return
	}

	// Block until the peer disconnects.
	sess.ReadLoop()
	h.Orch.Hub.Unregister(topic, sess)
	sess.Close()
}

func queryStr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
