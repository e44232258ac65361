package bus

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestPublishDeliversToTopicSubscribersOnly(t *testing.T) {
	b := NewMessageBus()
	var conv, conn, all int
	b.Subscribe(TopicConversation, func(Event) { conv++ })
	b.Subscribe(TopicConnection, func(Event) { conn++ })
	b.SubscribeAll(func(Event) { all++ })

	b.Publish(Event{Topic: TopicConversation, Kind: KindAppended})
	b.Publish(Event{Topic: TopicConversation, Kind: KindAppended})
	b.Publish(Event{Topic: TopicConnection, Kind: KindConnected})

	if conv != 2 || conn != 1 || all != 3 {
		t.Fatalf("unexpected counts conv=%d conn=%d all=%d", conv, conn, all)
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	b := NewMessageBus()
	var got Event
	b.Subscribe(TopicWebhook, func(e Event) { got = e })
	b.Publish(Event{Topic: TopicWebhook, Kind: KindReceived})
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewMessageBus()
	calls := 0
	unsub := b.Subscribe(TopicConversation, func(Event) { calls++ })
	b.Publish(Event{Topic: TopicConversation})
	unsub()
	unsub()
	b.Publish(Event{Topic: TopicConversation})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", b.SubscriberCount())
	}
}

func TestSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	b := NewMessageBus()
	delivered := false
	b.Subscribe(TopicConnection, func(Event) { panic("boom") })
	b.Subscribe(TopicConnection, func(Event) { delivered = true })

	b.Publish(Event{Topic: TopicConnection, Kind: KindDisconnected})
	if !delivered {
		t.Fatal("expected second subscriber to receive event")
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestKafkaMirrorForwardsEvents(t *testing.T) {
	b := NewMessageBus()
	w := &fakeWriter{}
	m := NewKafkaMirror(b, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	b.Publish(Event{Topic: TopicConversation, Kind: KindAppended, SessionID: "s1"})

	deadline := time.Now().Add(2 * time.Second)
	for w.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if w.count() != 1 {
		t.Fatalf("expected 1 mirrored message, got %d", w.count())
	}

	w.mu.Lock()
	msg := w.msgs[0]
	w.mu.Unlock()
	if string(msg.Key) != "conversation:s1" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.Kind != KindAppended {
		t.Fatalf("unexpected kind %q", decoded.Kind)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !w.closed {
		t.Fatal("expected writer closed")
	}
	if b.SubscriberCount() != 0 {
		t.Fatal("expected mirror to unsubscribe")
	}
}

func TestKafkaMirrorDropsWhenQueueFull(t *testing.T) {
	b := NewMessageBus()
	m := NewKafkaMirror(b, &fakeWriter{})
	for i := 0; i < cap(m.queue)+5; i++ {
		b.Publish(Event{Topic: TopicWebhook})
	}
	if m.Dropped() != 5 {
		t.Fatalf("expected 5 dropped, got %d", m.Dropped())
	}
}

func TestNewKafkaWriterTrimsBrokers(t *testing.T) {
	w := NewKafkaWriter("localhost:9092, localhost:9093", "rxdesk.events")
	if w.Topic != "rxdesk.events" {
		t.Fatalf("unexpected topic %q", w.Topic)
	}
	if got := w.Addr.String(); !strings.Contains(got, "localhost:9093") || strings.Contains(got, " ") {
		t.Fatalf("unexpected addr %q", got)
	}
}
