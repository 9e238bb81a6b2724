// Package ws is the topic-partitioned broadcast fabric. The orchestrator
// publishes one frame per topic per iteration; every websocket client
// subscribed to that topic receives the same serialized bytes.
package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Broadcast topics.
const (
	TopicPrices      = "prices"
	TopicSpread      = "spread"
	TopicCorrelation = "correlation"
	TopicSummary     = "summary"
	TopicAlerts      = "alerts"
	TopicAnalytics   = "analytics"
)

// Topics lists every valid topic.
var Topics = []string{
	TopicPrices, TopicSpread, TopicCorrelation,
	TopicSummary, TopicAlerts, TopicAnalytics,
}

// ValidTopic reports whether name is a known broadcast topic.
func ValidTopic(name string) bool {
	for _, t := range Topics {
		if t == name {
			return true
		}
	}
	return false
}

// Session is one subscriber connection. Send must be safe for concurrent
// use; a non-nil error marks the session dead and the hub evicts it.
type Session interface {
	Send(msg []byte) error
	Close() error
}

// frame is the standard topic envelope. The analytics topic bypasses it and
// publishes its payload raw.
type frame struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

// Hub tracks topic subscriptions and fans frames out to them.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[Session]bool

	// OnDrop is an optional metrics hook invoked per evicted session.
	OnDrop func()
}

// NewHub creates a hub with an empty subscriber set per topic.
func NewHub() *Hub {
	topics := make(map[string]map[Session]bool, len(Topics))
	for _, t := range Topics {
		topics[t] = make(map[Session]bool)
	}
	return &Hub{topics: topics}
}

// Register adds a session to a topic.
func (h *Hub) Register(topic string, s Session) error {
	if !ValidTopic(topic) {
		return fmt.Errorf("unknown topic %q", topic)
	}
	h.mu.Lock()
	h.topics[topic][s] = true
	n := len(h.topics[topic])
	h.mu.Unlock()
	log.Printf("[ws] client subscribed to %s (total=%d)", topic, n)
	return nil
}

// Unregister removes a session from a topic. Safe to call twice.
func (h *Hub) Unregister(topic string, s Session) {
	h.mu.Lock()
	set, ok := h.topics[topic]
	if ok {
		delete(set, s)
	}
	n := len(set)
	h.mu.Unlock()
	if ok {
		log.Printf("[ws] client left %s (total=%d)", topic, n)
	}
}

// Publish serializes payload for a topic and broadcasts it. Every topic but
// analytics wraps the payload in a {type, data, timestamp} envelope; the
// analytics payload goes out as-is. Returns the number of sessions that
// received the frame.
func (h *Hub) Publish(topic string, payload any) int {
	return h.PublishAs(topic, topic, payload)
}

// PublishAs is Publish with an explicit envelope type, for topics whose
// frame type differs from the topic name (alerts frames carry "alert").
func (h *Hub) PublishAs(topic, frameType string, payload any) int {
	var body any = payload
	if topic != TopicAnalytics {
		body = frame{Type: frameType, Data: payload, Timestamp: time.Now().UTC().UnixMilli()}
	}
	msg, err := json.Marshal(body)
	if err != nil {
		log.Printf("[ws] marshal failed for topic %s: %v", topic, err)
		return 0
	}
	return h.Broadcast(topic, msg)
}

// Broadcast sends pre-serialized bytes to every session on a topic.
// Sessions whose Send fails are closed and removed after the sweep.
func (h *Hub) Broadcast(topic string, msg []byte) int {
	h.mu.Lock()
	set, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	sessions := make([]Session, 0, len(set))
	for s := range set {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var failed []Session
	delivered := 0
	for _, s := range sessions {
		if err := s.Send(msg); err != nil {
			failed = append(failed, s)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, s := range failed {
			delete(h.topics[topic], s)
		}
		h.mu.Unlock()
		for _, s := range failed {
			s.Close()
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
		log.Printf("[ws] dropped %d dead client(s) from %s", len(failed), topic)
	}
	return delivered
}

// ConnectionCounts returns the subscriber count per topic.
func (h *Hub) ConnectionCounts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make(map[string]int, len(h.topics))
	for topic, set := range h.topics {
		counts[topic] = len(set)
	}
	return counts
}

// TotalConnections returns the subscriber count across all topics.
func (h *Hub) TotalConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, set := range h.topics {
		total += len(set)
	}
	return total
}
