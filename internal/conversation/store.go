package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/metrics"
)

// Persister stores one serialized log per session.
type Persister interface {
	LoadConversation(ctx context.Context, sessionID string) (string, error)
	SaveConversation(ctx context.Context, sessionID, blob string) error
	DeleteConversation(ctx context.Context, sessionID string) error
}

// Bus is the subset of *bus.MessageBus the store uses.
type Bus interface {
	Publish(bus.Event)
	Subscribe(topic bus.Topic, fn func(bus.Event)) func()
}

// Change is the payload of conversation bus events.
type Change struct {
	SessionID string   `json:"session_id"`
	Kind      string   `json:"kind"`
	Message   *Message `json:"message,omitempty"`
	Count     int      `json:"count"`
}

// Store is the single writer for one session's log.
type Store struct {
	sessionID string
	db        Persister
	bus       Bus
	mu        sync.Mutex
}

// NewStore returns the store for sessionID.
func NewStore(sessionID string, db Persister, b Bus) *Store {
	return &Store{sessionID: sessionID, db: db, bus: b}
}

// SessionID returns the session this store owns.
func (s *Store) SessionID() string { return s.sessionID }

// Append adds m to the end of the log, persists the full log and then
// broadcasts the change. A timestamp earlier than the current tail is
// raised to the tail's so the log stays non-decreasing. The stored message
// is returned.
func (s *Store) Append(ctx context.Context, m Message) (Message, error) {
	s.mu.Lock()
	stored, count, err := s.appendLocked(ctx, m)
	s.mu.Unlock()
	if err != nil {
		return Message{}, err
	}
	s.publish(bus.KindAppended, &stored, count)
	return stored, nil
}

func (s *Store) appendLocked(ctx context.Context, m Message) (Message, int, error) {
	if m.ID == "" {
		return Message{}, 0, fmt.Errorf("append: message has no id")
	}
	msgs, err := s.load(ctx)
	if err != nil {
		return Message{}, 0, err
	}
	if n := len(msgs); n > 0 && m.Timestamp.Before(msgs[n-1].Timestamp) {
		m.Timestamp = msgs[n-1].Timestamp
	}
	msgs = append(msgs, m)
	if err := s.save(ctx, msgs); err != nil {
		return Message{}, 0, err
	}
	metrics.MessagesAppended.WithLabelValues(string(m.Sender)).Inc()
	return m, len(msgs), nil
}

// LoadAll returns the persisted log in order.
func (s *Store) LoadAll(ctx context.Context) ([]Message, error) {
	return s.load(ctx)
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	msgs, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// SeedGreeting appends the synthetic greeting iff the log is empty and
// reports whether it did.
func (s *Store) SeedGreeting(ctx context.Context) (bool, error) {
	s.mu.Lock()
	msgs, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if len(msgs) > 0 {
		s.mu.Unlock()
		return false, nil
	}
	greeting, err := NewMessage(Greeting, SenderAgent)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	stored, count, err := s.appendLocked(ctx, greeting)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.publish(bus.KindAppended, &stored, count)
	return true, nil
}

// Clear deletes the log and broadcasts the change.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.db.DeleteConversation(ctx, s.sessionID)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	s.publish(bus.KindCleared, nil, 0)
	return nil
}

// OnChange registers fn for changes to this session. The returned func
// unregisters it.
func (s *Store) OnChange(fn func(Change)) (unsubscribe func()) {
	return s.bus.Subscribe(bus.TopicConversation, func(evt bus.Event) {
		if evt.SessionID != s.sessionID {
			return
		}
		if c, ok := evt.Payload.(Change); ok {
			fn(c)
		}
	})
}

func (s *Store) publish(kind string, m *Message, count int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Topic:     bus.TopicConversation,
		Kind:      kind,
		SessionID: s.sessionID,
		Payload:   Change{SessionID: s.sessionID, Kind: kind, Message: m, Count: count},
	})
}

func (s *Store) load(ctx context.Context) ([]Message, error) {
	blob, err := s.db.LoadConversation(ctx, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if blob == "" {
		return []Message{}, nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(blob), &msgs); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return msgs, nil
}

func (s *Store) save(ctx context.Context, msgs []Message) error {
	blob, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.db.SaveConversation(ctx, s.sessionID, string(blob)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}
