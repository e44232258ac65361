package messaging

import (
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

// ProbePath is the read-only endpoint used to confirm a credential.
const ProbePath = "/users"

// Identity is the application id, token and region a request runs as.
type Identity struct {
	AppID  string
	Token  string
	Region Region
}

// Client issues platform API calls. The zero value is not usable; use NewClient.
type Client struct {
	httpClient *http.Client
	apiBase    string
}

// NewClient returns a client. A non-empty apiBase replaces the
// region-resolved endpoint for every call (sandboxes and local stubs).
func NewClient(httpClient *http.Client, apiBase string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		apiBase:    strings.TrimSuffix(strings.TrimSpace(apiBase), "/"),
	}
}

// Endpoint resolves the base URL for id, honoring the apiBase override.
// It returns "" for a blank application id even when overridden.
func (c *Client) Endpoint(id Identity) string {
	resolved := ResolveEndpoint(id.AppID, id.Region)
	if resolved == "" || c.apiBase == "" {
		return resolved
	}
	return c.apiBase
}

// Validate performs one authenticated probe and reports whether the pair is
// live. Any failure yields false; nothing is retried.
func (c *Client) Validate(ctx context.Context, appID, token string, region Region) bool {
	id := Identity{AppID: appID, Token: token, Region: ParseRegion(string(region))}
	ok := c.probe(ctx, id)
	result := "invalid"
	if ok {
		result = "valid"
	}
	metrics.ValidationProbes.WithLabelValues(string(id.Region), result).Inc()
	return ok
}

func (c *Client) probe(ctx context.Context, id Identity) bool {
	endpoint := c.Endpoint(id)
	if endpoint == "" || strings.TrimSpace(id.Token) == "" {
		return false
	}
	body, status, err := c.get(ctx, endpoint+ProbePath, id.Token)
	if err != nil {
		slog.Warn("Credential probe failed", "app_id", id.AppID, "region", id.Region, "error", err)
		return false
	}
	if status < 200 || status > 299 {
		slog.Info("Credential probe rejected", "app_id", id.AppID, "region", id.Region, "status", status)
		return false
	}
	if !json.Valid(body) {
		slog.Warn("Credential probe returned malformed body", "app_id", id.AppID, "region", id.Region)
		return false
	}
	return true
}

// APIError is a non-2xx platform response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider API error (status %d)", e.Status)
}

// getJSON fetches path under id's endpoint and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, id Identity, path string, out any) error {
	endpoint := c.Endpoint(id)
	if endpoint == "" {
		return fmt.Errorf("missing application id")
	}
	body, status, err := c.get(ctx, endpoint+path, id.Token)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf8")
	req.Header.Set("Api-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
