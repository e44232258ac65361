// Package conversation keeps the per-session chat log: an ordered message
// sequence persisted whole on every change and announced on the bus.
package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Greeting is the synthetic agent message seeded into an empty conversation.
const Greeting = "Hi there! How can we help you with your prescriptions today?"

// ErrEmptyContent is returned for blank message text.
var ErrEmptyContent = errors.New("message content is empty")

// Message is one chat entry.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message stamped now with a time-ordered id.
func NewMessage(content string, sender Sender) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		ID:        newID(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
