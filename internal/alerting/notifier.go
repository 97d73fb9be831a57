package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sink delivers operator-facing text alerts.
type Sink interface {
	Post(ctx context.Context, text string) error
}

// WebhookNotifier pushes messages through a Discord-compatible webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier constructs a webhook sink.
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Post sends one text message to the webhook.
func (n *WebhookNotifier) Post(ctx context.Context, text string) error {
	if n.url == "" {
		return fmt.Errorf("webhook url not configured")
	}

	payload := map[string]string{"content": text}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug().Int("bytes", len(text)).Msg("alert delivered")
	return nil
}

// NopSink discards all alerts.
type NopSink struct{}

// Post implements Sink.
func (NopSink) Post(context.Context, string) error { return nil }

var (
	_ Sink = (*WebhookNotifier)(nil)
	_ Sink = NopSink{}
)
