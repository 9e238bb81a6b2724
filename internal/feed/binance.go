// Package feed streams normalized trade ticks from the Binance USDⓈ-M
// futures combined stream and fans them out to registered callbacks,
// reconnecting with exponential backoff when the upstream drops.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"statarb-engine/internal/model"
)

// DefaultBaseURL is the Binance futures combined-stream endpoint.
const DefaultBaseURL = "wss://fstream.binance.com/stream"

const (
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 60 * time.Second
	pingInterval      = 20 * time.Second
	pongWait          = 10 * time.Second
	closeWait         = 5 * time.Second
	dialTimeout       = 10 * time.Second
)

// errSkipped marks frames that are valid upstream traffic but carry no
// usable trade: non-trade events and liquidation/insurance prints.
var errSkipped = errors.New("frame skipped")

// streamFrame is the combined-stream wrapper Binance puts around each event.
type streamFrame struct {
	Stream string     `json:"stream"`
	Data   tradeEvent `json:"data"`
}

type tradeEvent struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	TradeTime int64  `json:"T"` // trade time, not event time (E)
	OrderType string `json:"X"`
}

// parseTrade validates one combined-stream frame and normalizes it to a
// Tick. Returns errSkipped for frames that are deliberately ignored.
func parseTrade(raw []byte) (model.Tick, error) {
	var frame streamFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return model.Tick{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Stream == "" {
		return model.Tick{}, errSkipped // control message, not stream data
	}
	ev := frame.Data
	if ev.Event != "trade" {
		return model.Tick{}, errSkipped
	}
	// Liquidation / insurance fund prints carry order type "NA".
	if ev.OrderType == "NA" {
		return model.Tick{}, errSkipped
	}

	symbol := strings.ToUpper(ev.Symbol)
	if symbol == "" {
		return model.Tick{}, errors.New("missing symbol")
	}
	if ev.Price == "" || ev.Qty == "" {
		return model.Tick{}, fmt.Errorf("missing price/qty for %s", symbol)
	}
	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("bad price for %s: %w", symbol, err)
	}
	qty, err := strconv.ParseFloat(ev.Qty, 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("bad qty for %s: %w", symbol, err)
	}
	if price <= 0 {
		return model.Tick{}, fmt.Errorf("invalid price %v for %s", price, symbol)
	}
	// A negative quantity would drive bar volume negative downstream.
	if qty < 0 {
		return model.Tick{}, fmt.Errorf("invalid qty %v for %s", qty, symbol)
	}
	if ev.TradeTime <= 0 {
		return model.Tick{}, fmt.Errorf("invalid trade time %d for %s", ev.TradeTime, symbol)
	}

	return model.Tick{
		Symbol:    symbol,
		Price:     price,
		Qty:       qty,
		TradeTime: time.UnixMilli(ev.TradeTime).UTC(),
	}, nil
}

// Client maintains the upstream connection and dispatches ticks.
type Client struct {
	baseURL string

	mu        sync.RWMutex
	symbols   map[string]bool
	callbacks []func(model.Tick)
	conn      *websocket.Conn

	running   atomic.Bool
	connected atomic.Bool
	msgCount  atomic.Int64
	lastMsgNs atomic.Int64

	// OnReconnect is an optional metrics hook invoked per reconnect attempt.
	OnReconnect func()
}

// NewClient creates a feed client tracking the given symbols.
func NewClient(symbols []string) *Client {
	c := &Client{baseURL: DefaultBaseURL, symbols: make(map[string]bool, len(symbols))}
	for _, s := range symbols {
		c.symbols[strings.ToUpper(s)] = true
	}
	return c
}

// SetBaseURL overrides the upstream endpoint (tests, alternative clusters).
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// SubscribeTicks registers a callback invoked with every normalized tick.
// Callbacks run on the read goroutine; panics are contained per callback.
func (c *Client) SubscribeTicks(fn func(model.Tick)) {
	c.mu.Lock()
	c.callbacks = append(c.callbacks, fn)
	c.mu.Unlock()
}

// AddSymbol adds a symbol to the tracked set. The live stream subscription
// is built at connect time, so data for a new symbol flows only after the
// next reconnect.
func (c *Client) AddSymbol(symbol string) {
	symbol = strings.ToUpper(symbol)
	c.mu.Lock()
	added := !c.symbols[symbol]
	c.symbols[symbol] = true
	c.mu.Unlock()
	if added {
		log.Printf("[feed] tracking symbol %s (effective after reconnect)", symbol)
	}
}

// RemoveSymbol drops a symbol from the tracked set.
func (c *Client) RemoveSymbol(symbol string) {
	c.mu.Lock()
	delete(c.symbols, strings.ToUpper(symbol))
	c.mu.Unlock()
}

// Symbols returns the tracked symbols, sorted.
func (c *Client) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// streamURL builds the combined-stream URL, e.g.
// wss://fstream.binance.com/stream?streams=btcusdt@trade/ethusdt@trade.
func (c *Client) streamURL() (string, error) {
	symbols := c.Symbols()
	if len(symbols) == 0 {
		return "", errors.New("no symbols configured for streaming")
	}
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@trade"
	}
	return c.baseURL + "?streams=" + strings.Join(streams, "/"), nil
}

// Run connects and streams until ctx is cancelled or Stop is called,
// reconnecting with exponential backoff (5s doubling, 60s cap, reset after
// a successful dial).
func (c *Client) Run(ctx context.Context) {
	c.running.Store(true)
	attempt := 0

	for c.running.Load() && ctx.Err() == nil {
		if err := c.connectAndListen(ctx); err == nil {
			attempt = 0
		} else {
			log.Printf("[feed] connection error: %v", err)
		}

		if !c.running.Load() || ctx.Err() != nil {
			break
		}
		attempt++
		delay := reconnectDelay << (attempt - 1)
		if delay > maxReconnectDelay || delay <= 0 {
			delay = maxReconnectDelay
		}
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		log.Printf("[feed] reconnect attempt #%d in %s", attempt, delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectAndListen dials once and consumes messages until the connection
// drops. Returns nil when the dial succeeded, whatever ended the session.
func (c *Client) connectAndListen(ctx context.Context) error {
	url, err := c.streamURL()
	if err != nil {
		return err
	}
	log.Printf("[feed] connecting to %s", url)

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	log.Printf("[feed] connected, streaming %d symbols", len(c.Symbols()))

	defer func() {
		c.connected.Store(false)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		log.Println("[feed] connection closed")
	}()

	// Keepalive: ping every pingInterval, expect traffic or pong within
	// pingInterval+pongWait.
	conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		return nil
	})
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(closeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for c.running.Load() {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if c.running.Load() {
				log.Printf("[feed] read error: %v", err)
			}
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(raw)
	}
	return nil
}

func (c *Client) handleMessage(raw []byte) {
	tick, err := parseTrade(raw)
	if err != nil {
		if !errors.Is(err, errSkipped) {
			log.Printf("[feed] %v", err)
		}
		return
	}

	c.mu.RLock()
	tracked := c.symbols[tick.Symbol]
	callbacks := c.callbacks
	c.mu.RUnlock()
	if !tracked {
		log.Printf("[feed] untracked symbol %s", tick.Symbol)
		return
	}

	n := c.msgCount.Add(1)
	c.lastMsgNs.Store(time.Now().UnixNano())
	if n%500 == 0 {
		log.Printf("[feed] processed %d trades, latest %s @ %.2f", n, tick.Symbol, tick.Price)
	}

	for _, fn := range callbacks {
		c.dispatch(fn, tick)
	}
}

func (c *Client) dispatch(fn func(model.Tick), tick model.Tick) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[feed] tick callback panic for %s: %v", tick.Symbol, r)
		}
	}()
	fn(tick)
}

// Stop shuts the client down and prevents further reconnects.
func (c *Client) Stop() {
	c.running.Store(false)
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		conn.Close()
	}
	log.Println("[feed] stopped")
}

// Connected reports whether the upstream session is live.
func (c *Client) Connected() bool { return c.connected.Load() }

// Stats is a snapshot of feed counters for the health endpoint.
type Stats struct {
	Connected       bool      `json:"connected"`
	MessageCount    int64     `json:"message_count"`
	LastMessageTime time.Time `json:"last_message_time"`
	Symbols         []string  `json:"symbols"`
}

// Stats returns the current feed counters.
func (c *Client) Stats() Stats {
	var last time.Time
	if ns := c.lastMsgNs.Load(); ns > 0 {
		last = time.Unix(0, ns).UTC()
	}
	return Stats{
		Connected:       c.connected.Load(),
		MessageCount:    c.msgCount.Load(),
		LastMessageTime: last,
		Symbols:         c.Symbols(),
	}
}
