package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// WebhookSink posts each outbound message as JSON to a host URL.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

// NewWebhookSink creates a sink posting to url with the given request timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{URL: url, Client: &http.Client{Timeout: timeout}}
}

// PostMessage sends msg to the webhook.
func (w *WebhookSink) PostMessage(ctx context.Context, msg core.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("host rejected %s: %s", msg.Type, resp.Status)
	}
	return nil
}

// LogSink logs each outbound message.
type LogSink struct {
	Logger *slog.Logger
}

// PostMessage logs msg at info level.
func (l LogSink) PostMessage(ctx context.Context, msg core.OutboundMessage) error {
	l.Logger.InfoContext(ctx, "outbound message",
		slog.String("type", msg.Type),
		slog.String("run", msg.RunID),
		slog.String("url", msg.URL),
		slog.String("provider", msg.Provider),
	)
	return nil
}

// MultiSink fans a message out to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []sidebar.MessageSink

// PostMessage posts msg to every sink.
func (m MultiSink) PostMessage(ctx context.Context, msg core.OutboundMessage) error {
	var errs []error
	for _, s := range m {
		if err := s.PostMessage(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
