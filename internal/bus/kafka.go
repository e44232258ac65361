package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the mirror needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMirror copies every bus event onto a Kafka topic. Publishing never
// blocks on the broker: events queue on a buffered channel drained by Run,
// and are dropped with a warning when the queue is full.
type KafkaMirror struct {
	writer  KafkaWriter
	queue   chan Event
	unsub   func()
	mu      sync.Mutex
	dropped int
}

// NewKafkaWriter builds a writer for a comma-separated broker list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaMirror subscribes to every topic on b and forwards events to w.
func NewKafkaMirror(b *MessageBus, w KafkaWriter) *KafkaMirror {
	m := &KafkaMirror{
		writer: w,
		queue:  make(chan Event, 100),
	}
	m.unsub = b.SubscribeAll(m.enqueue)
	return m
}

func (m *KafkaMirror) enqueue(evt Event) {
	select {
	case m.queue <- evt:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		slog.Warn("KafkaMirror: queue full, dropping event", "topic", evt.Topic, "kind", evt.Kind)
	}
}

// Run drains the queue until ctx is cancelled. Run it as a goroutine.
func (m *KafkaMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-m.queue:
			m.write(ctx, evt)
		}
	}
}

func (m *KafkaMirror) write(ctx context.Context, evt Event) {
	value, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("KafkaMirror: encode failed", "topic", evt.Topic, "error", err)
		return
	}
	key := string(evt.Topic)
	if evt.SessionID != "" {
		key += ":" + evt.SessionID
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  evt.Timestamp,
	}); err != nil {
		slog.Warn("KafkaMirror: write failed", "topic", evt.Topic, "error", err)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (m *KafkaMirror) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close unsubscribes from the bus and closes the writer.
func (m *KafkaMirror) Close() error {
	m.unsub()
	return m.writer.Close()
}
