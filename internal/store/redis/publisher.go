// Package redis mirrors finalized bars and alerts to Redis PubSub so other
// processes can tap the stream. The mirror is optional and fire-and-forget:
// nothing in the engine reads it back, and publish failures never block the
// pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"statarb-engine/internal/model"
)

const publishTimeout = 2 * time.Second

// Config configures the Redis mirror. An empty Addr disables it.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Publisher mirrors engine events to Redis PubSub channels:
//
//	pub:bar:<interval>:<symbol>  finalized bars
//	pub:alert                    alerts
type Publisher struct {
	client *goredis.Client

	// OnPublish is an optional metrics hook invoked with each publish
	// duration.
	OnPublish func(time.Duration)
}

// New creates a Publisher and pings the server. Returns (nil, nil) when the
// mirror is disabled by an empty address.
func New(cfg Config) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] mirror connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// PublishBar mirrors one finalized bar. Safe on a nil receiver.
func (p *Publisher) PublishBar(bar model.Bar) {
	if p == nil {
		return
	}
	channel := "pub:bar:" + string(bar.Interval) + ":" + bar.Symbol
	p.publish(channel, bar.JSON())
}

// PublishAlert mirrors one alert. Safe on a nil receiver.
func (p *Publisher) PublishAlert(a model.Alert) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	p.publish("pub:alert", payload)
}

func (p *Publisher) publish(channel string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	start := time.Now()
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[redis] publish %s failed: %v", channel, err)
		return
	}
	if p.OnPublish != nil {
		p.OnPublish(time.Since(start))
	}
}

// Close releases the client. Safe on a nil receiver.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
