package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rxdesk/rxdesk/internal/metrics"
)

// Dispatcher delivers signed events. Delivery is best effort: one attempt,
// no retry, failures reported as false.
type Dispatcher struct {
	httpClient *http.Client
}

// NewDispatcher returns a dispatcher using httpClient, or a 10s default.
func NewDispatcher(httpClient *http.Client) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Dispatcher{httpClient: httpClient}
}

// Dispatch serializes evt, signs it with secret and POSTs it to url.
// It returns true only on a 2xx response.
func (d *Dispatcher) Dispatch(ctx context.Context, url string, evt Event, secret string) bool {
	err := d.deliver(ctx, url, evt, secret)
	result := "ok"
	if err != nil {
		result = "failed"
		slog.Warn("Webhook delivery failed", "category", evt.Category, "url", url, "error", err)
	}
	metrics.WebhookDeliveries.WithLabelValues(evt.Category, result).Inc()
	return err == nil
}

func (d *Dispatcher) deliver(ctx context.Context, url string, evt Event, secret string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("no webhook url")
	}
	if secret == "" {
		return fmt.Errorf("no signing secret")
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(body, secret))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
