// Package push delivers booking notifications to the recipient's devices.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

const defaultTimeout = 10 * time.Second

// WebhookTransport posts notifications as JSON to a push gateway.
type WebhookTransport struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewWebhookTransport builds a transport limited to perSecond requests with the given
// burst. A non-positive perSecond disables limiting.
func NewWebhookTransport(url string, perSecond float64, burst int, logger zerolog.Logger) *WebhookTransport {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &WebhookTransport{
		url:     url,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With().Str("service", "push").Logger(),
	}
}

type webhookPayload struct {
	NotificationID string                `json:"notification_id"`
	Type           string                `json:"type"`
	TargetUserID   string                `json:"target_user_id"`
	Title          string                `json:"title"`
	Body           string                `json:"body"`
	Payload        json.RawMessage       `json:"payload,omitempty"`
	Actions        []notification.Action `json:"actions,omitempty"`
	CreatedAt      string                `json:"created_at"`
}

// Send blocks until the rate limiter admits the request or ctx ends.
func (t *WebhookTransport) Send(ctx context.Context, n *notification.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limit: %w", err)
	}

	body, err := json.Marshal(webhookPayload{
		NotificationID: n.NotificationID.String(),
		Type:           string(n.Type),
		TargetUserID:   n.TargetUserID,
		Title:          n.Title,
		Body:           n.Message,
		Payload:        n.Payload,
		Actions:        n.Actions,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-ID", n.NotificationID.String())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	t.logger.Debug().
		Str("notification_id", n.NotificationID.String()).
		Int("status_code", resp.StatusCode).
		Msg("push delivery attempted")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(respBody))
}

// LogTransport writes notifications to the log instead of a device. Used when no
// gateway is configured.
type LogTransport struct {
	logger zerolog.Logger
}

func NewLogTransport(logger zerolog.Logger) *LogTransport {
	return &LogTransport{logger: logger.With().Str("service", "push").Logger()}
}

func (t *LogTransport) Send(ctx context.Context, n *notification.Notification) error {
	t.logger.Info().
		Str("notification_id", n.NotificationID.String()).
		Str("type", string(n.Type)).
		Str("target_user_id", n.TargetUserID).
		Int("actions", len(n.Actions)).
		Msg(n.Title)
	return nil
}
