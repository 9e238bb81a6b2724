// Package notification delivers alerts to external channels. The webhook
// notifier plugs into the alert manager as a subscriber, so breaches reach
// Slack/Discord-style endpoints in addition to the websocket topic.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"statarb-engine/internal/model"
)

// WebhookNotifier posts alerts to a generic HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send delivers one alert. Returns an error if delivery fails.
func (w *WebhookNotifier) Send(ctx context.Context, a model.Alert) error {
	payload := map[string]any{
		"level":   a.Type,
		"title":   a.Title,
		"message": a.Message,
		"symbol":  a.Symbol,
		"metric":  a.Metric,
		"value":   a.Value,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Subscriber adapts the notifier to the alert manager's callback contract.
// Delivery runs on its own goroutine and failures are only logged; a slow
// webhook must never stall the analytics loop.
func (w *WebhookNotifier) Subscriber() func(model.Alert) {
	return func(a model.Alert) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.Send(ctx, a); err != nil {
				log.Printf("[webhook] %v", err)
			}
		}()
	}
}
