package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier accepts an alert payload. It reports whether the receiver
// accepted it and never returns an error.
type Notifier interface {
	Notify(ctx context.Context, p Payload) bool
}

// WebhookNotifier POSTs payloads as JSON to a URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a notifier for url. timeout <= 0 uses 5s.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
}

// Notify returns true only when the webhook answered 2xx.
func (n *WebhookNotifier) Notify(ctx context.Context, p Payload) bool {
	if n.url == "" {
		n.logger.Debug("alert: no webhook configured, dropping", "id", p.ID)
		return false
	}

	body, err := json.Marshal(p)
	if err != nil {
		n.logger.Warn("alert: encoding payload", "id", p.ID, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("alert: building request", "id", p.ID, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("alert: webhook unreachable", "id", p.ID, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn("alert: webhook rejected payload", "id", p.ID, "status", resp.StatusCode)
		return false
	}
	return true
}
