// Package bus provides the typed publish/subscribe channel that propagates
// conversation, connection and webhook changes between components.
package bus

import (
	"log/slog"
	"sync"
	"time"
)

// Topic scopes a subscription.
type Topic string

const (
	TopicConversation Topic = "conversation"
	TopicConnection   Topic = "connection"
	TopicWebhook      Topic = "webhook"
)

// Event kinds.
const (
	KindAppended     = "appended"
	KindCleared      = "cleared"
	KindConnected    = "connected"
	KindDisconnected = "disconnected"
	KindReceived     = "received"
	KindDispatched   = "dispatched"
)

// Event is one change notification.
type Event struct {
	Topic     Topic     `json:"topic"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type subscription struct {
	id    uint64
	topic Topic // empty means every topic
	fn    func(Event)
}

// MessageBus fans events out to subscribers synchronously, in registration
// order, on the publishing goroutine.
type MessageBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{}
}

// Subscribe registers a callback for one topic. The returned func removes it.
func (b *MessageBus) Subscribe(topic Topic, fn func(Event)) (unsubscribe func()) {
	return b.add(topic, fn)
}

// SubscribeAll registers a callback for every topic.
func (b *MessageBus) SubscribeAll(fn func(Event)) (unsubscribe func()) {
	return b.add("", fn)
}

func (b *MessageBus) add(topic Topic, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *MessageBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every matching subscriber before returning.
// A panicking subscriber is logged and does not stop delivery to the rest.
func (b *MessageBus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	targets := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == "" || s.topic == evt.Topic {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		deliver(fn, evt)
	}
}

func deliver(fn func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bus: subscriber panic", "topic", evt.Topic, "kind", evt.Kind, "panic", r)
		}
	}()
	fn(evt)
}

// SubscriberCount reports how many callbacks are registered.
func (b *MessageBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
