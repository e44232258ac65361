package chat

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rxdesk/rxdesk/internal/conversation"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/responder"
)

// ErrInvalidSession is returned for session ids outside [A-Za-z0-9._:-]{1,128}.
var ErrInvalidSession = errors.New("invalid session id")

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ValidSession reports whether id is usable as a session id.
func ValidSession(id string) bool {
	return sessionPattern.MatchString(id)
}

// Manager owns one widget per session id.
type Manager struct {
	db        conversation.Persister
	bus       conversation.Bus
	generator responder.Generator
	notifier  notify.Notifier

	mu      sync.Mutex
	widgets map[string]*Widget
}

func NewManager(db conversation.Persister, b conversation.Bus, gen responder.Generator, n notify.Notifier) *Manager {
	return &Manager{db: db, bus: b, generator: gen, notifier: n, widgets: make(map[string]*Widget)}
}

// Widget returns the widget for sessionID, creating it on first use.
func (m *Manager) Widget(sessionID string) (*Widget, error) {
	if !ValidSession(sessionID) {
		return nil, fmt.Errorf("%w %q", ErrInvalidSession, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.widgets[sessionID]; ok {
		return w, nil
	}
	w := NewWidget(conversation.NewStore(sessionID, m.db, m.bus), m.generator, m.notifier)
	m.widgets[sessionID] = w
	return w, nil
}
