package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rxdesk/rxdesk/internal/bus"
)

type staticSecret struct {
	secret string
	ok     bool
}

func (s staticSecret) WebhookSecret() (string, bool) { return s.secret, s.ok }

func newSignedRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign([]byte(body), secret))
	return req
}

func TestHandlerAcceptsSignedEvent(t *testing.T) {
	b := bus.NewMessageBus()
	var got []bus.Event
	b.Subscribe(bus.TopicWebhook, func(e bus.Event) { got = append(got, e) })

	h := NewHandler(staticSecret{"tok", true}, b)
	body := `{"category":"group_channel:message_send","payload":{"channel_url":"ch-1","channel_type":"group","message":{"message_id":7,"message":"refill ready?","created_at":1700000000000},"sender":{"user_id":"u1","nickname":"Pat"}}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newSignedRequest(body, "tok"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got) != 1 || got[0].Kind != bus.KindReceived {
		t.Fatalf("expected one received event, got %+v", got)
	}
	evt, ok := got[0].Payload.(Event)
	if !ok {
		t.Fatalf("unexpected payload type %T", got[0].Payload)
	}
	msg, ok := evt.Payload.(MessagePayload)
	if !ok || msg.Message == nil || msg.Message.Message != "refill ready?" || msg.Sender.Nickname != "Pat" {
		t.Fatalf("unexpected message payload %+v", evt.Payload)
	}
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	b := bus.NewMessageBus()
	published := 0
	b.SubscribeAll(func(bus.Event) { published++ })

	h := NewHandler(staticSecret{"tok", true}, b)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newSignedRequest(`{"category":"x","payload":{}}`, "wrong"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if published != 0 {
		t.Fatal("rejected event must not be published")
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	b := bus.NewMessageBus()

	rec := httptest.NewRecorder()
	NewHandler(staticSecret{}, b).ServeHTTP(rec, newSignedRequest(`{}`, "tok"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when disconnected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHandler(staticSecret{"tok", true}, b).ServeHTTP(rec, newSignedRequest(`not json`, "tok"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed event, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHandler(staticSecret{"tok", true}, b).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
