// Package audit records bus events into the timeline so the console can show
// what happened to the integration and when.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/connection"
	"github.com/rxdesk/rxdesk/internal/conversation"
	"github.com/rxdesk/rxdesk/internal/timeline"
	"github.com/rxdesk/rxdesk/internal/webhook"
)

// Sink stores timeline events.
type Sink interface {
	AddEvent(*timeline.TimelineEvent) error
}

// Attach subscribes to every topic and returns the unsubscribe func.
func Attach(b *bus.MessageBus, sink Sink) func() {
	return b.SubscribeAll(func(evt bus.Event) {
		te := toTimeline(evt)
		if te == nil {
			return
		}
		if err := sink.AddEvent(te); err != nil {
			slog.Warn("Timeline write failed", "kind", te.Kind, "error", err)
		}
	})
}

func toTimeline(evt bus.Event) *timeline.TimelineEvent {
	te := &timeline.TimelineEvent{
		EventID:   uuid.NewString(),
		Timestamp: evt.Timestamp,
		SessionID: evt.SessionID,
	}

	switch p := evt.Payload.(type) {
	case conversation.Change:
		te.Kind = timeline.KindMessage
		if p.Message == nil {
			te.Summary = fmt.Sprintf("conversation %s", evt.Kind)
			break
		}
		te.EventID = p.Message.ID
		te.Summary = fmt.Sprintf("%s message #%d", p.Message.Sender, p.Count)
	case connection.Snapshot:
		if evt.Kind == bus.KindConnected {
			te.Kind = timeline.KindConnected
			te.Summary = fmt.Sprintf("connected app %s (%s)", p.ApplicationID, p.Region)
		} else {
			te.Kind = timeline.KindDisconnected
			te.Summary = "disconnected"
		}
	case connection.DispatchRecord:
		te.Kind = timeline.KindWebhookOut
		result := "delivered"
		if !p.OK {
			result = "failed"
		}
		te.Summary = fmt.Sprintf("%s to %s %s", p.Category, p.URL, result)
	case webhook.Event:
		te.Kind = timeline.KindWebhookIn
		te.Summary = fmt.Sprintf("received %s", p.Category)
		if msg, ok := p.Payload.(webhook.MessagePayload); ok {
			te.SessionID = msg.ChannelURL
		}
	default:
		return nil
	}

	if raw, err := json.Marshal(evt.Payload); err == nil {
		te.Metadata = string(raw)
	}
	return te
}
