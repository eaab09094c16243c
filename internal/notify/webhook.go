package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// ErrNoTarget means no webhook URL is configured; callers skip delivery
// and leave history untouched so nothing is silently lost.
var ErrNoTarget = errors.New("notify: no webhook url configured")

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// RatePerSec bounds outbound posts; Discord webhooks tolerate low
	// single-digit rates.
	RatePerSec int
}

// Webhook delivers notifications as Discord webhook posts.
type Webhook struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Webhook{
		url:     strings.TrimSpace(cfg.URL),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type webhookPayload struct {
	Content         string          `json:"content"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type allowedMentions struct {
	Parse       []string `json:"parse"`
	RepliedUser bool     `json:"replied_user"`
}

func (w *Webhook) Deliver(ctx context.Context, userID, message string) error {
	if w.url == "" {
		return ErrNoTarget
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(webhookPayload{
		Content:         message,
		AllowedMentions: allowedMentions{Parse: []string{"users"}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post for user %s: %w", userID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post for user %s: status %d", userID, resp.StatusCode)
	}
	return nil
}
