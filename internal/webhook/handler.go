package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/metrics"
)

const maxBodyBytes = 1 << 20

// SecretSource yields the current signing secret, false when disconnected.
type SecretSource interface {
	WebhookSecret() (string, bool)
}

// Publisher receives verified inbound events.
type Publisher interface {
	Publish(bus.Event)
}

// Handler accepts provider webhook callbacks. Requests whose signature does
// not match the stored API token are rejected with 401.
type Handler struct {
	secrets SecretSource
	bus     Publisher
}

func NewHandler(secrets SecretSource, pub Publisher) *Handler {
	return &Handler{secrets: secrets, bus: pub}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	secret, ok := h.secrets.WebhookSecret()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "provider not connected")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if !Verify(body, r.Header.Get(SignatureHeader), secret) {
		metrics.WebhookVerifications.WithLabelValues("rejected").Inc()
		slog.Warn("Webhook signature rejected", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	metrics.WebhookVerifications.WithLabelValues("ok").Inc()

	var evt struct {
		Category string          `json:"category"`
		Payload  json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &evt); err != nil || evt.Category == "" {
		writeError(w, http.StatusBadRequest, "invalid event")
		return
	}

	var payload any = evt.Payload
	var msg MessagePayload
	if len(evt.Payload) > 0 && json.Unmarshal(evt.Payload, &msg) == nil && msg.ChannelURL != "" {
		payload = msg
	}
	h.bus.Publish(bus.Event{
		Topic:   bus.TopicWebhook,
		Kind:    bus.KindReceived,
		Payload: Event{Category: evt.Category, Payload: payload},
	})

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
