package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookNotifier posts escalations as JSON to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// webhookPayload carries a "text" field understood by common chat webhooks
// alongside the structured escalation.
type webhookPayload struct {
	Text string `json:"text"`
	Escalation
}

// NewWebhookNotifier creates a webhook notifier. A nil client uses a client
// with a 10 second timeout.
func NewWebhookNotifier(url string, client *http.Client) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, esc Escalation) error {
	body, err := json.Marshal(webhookPayload{Text: esc.Summary(), Escalation: esc})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
