// Package chat runs the embedded chat widget: open/close, and one
// user→agent exchange at a time per session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rxdesk/rxdesk/internal/conversation"
	"github.com/rxdesk/rxdesk/internal/metrics"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/responder"
)

// State is the exchange state of a widget.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

var (
	// ErrEmptyMessage is returned for blank input; nothing is appended.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while an exchange is in flight.
	ErrBusy = errors.New("a message is already being sent")
)

// Exchange is the result of one Send.
type Exchange struct {
	User     conversation.Message `json:"user"`
	Reply    conversation.Message `json:"reply"`
	Fallback bool                 `json:"fallback"`
	State    State                `json:"state"`
}

// Widget is one session's chat widget.
type Widget struct {
	store     *conversation.Store
	generator responder.Generator
	notifier  notify.Notifier

	mu    sync.Mutex
	open  bool
	state State
}

// NewWidget returns a closed, idle widget.
func NewWidget(store *conversation.Store, gen responder.Generator, n notify.Notifier) *Widget {
	return &Widget{store: store, generator: gen, notifier: n, state: StateIdle}
}

// Open marks the widget open. The greeting is seeded only on a closed→open
// transition and only into an empty conversation.
func (w *Widget) Open(ctx context.Context) ([]conversation.Message, error) {
	w.mu.Lock()
	wasOpen := w.open
	w.open = true
	w.mu.Unlock()

	if !wasOpen {
		if _, err := w.store.SeedGreeting(ctx); err != nil {
			return nil, err
		}
	}
	return w.store.LoadAll(ctx)
}

// Close marks the widget closed. An in-flight exchange still completes and
// persists its reply, but raises no notifications.
func (w *Widget) Close() {
	w.mu.Lock()
	w.open = false
	w.mu.Unlock()
}

// IsOpen reports whether the widget is open.
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// State returns the current exchange state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Messages returns the persisted conversation.
func (w *Widget) Messages(ctx context.Context) ([]conversation.Message, error) {
	return w.store.LoadAll(ctx)
}

// Store exposes the underlying conversation store.
func (w *Widget) Store() *conversation.Store { return w.store }

// Send appends the user message, generates and appends exactly one agent
// reply, and returns to idle on every exit path.
func (w *Widget) Send(ctx context.Context, input string) (Exchange, error) {
	if strings.TrimSpace(input) == "" {
		return Exchange{}, ErrEmptyMessage
	}

	w.mu.Lock()
	if w.state == StateSending {
		w.mu.Unlock()
		return Exchange{}, ErrBusy
	}
	w.state = StateSending
	w.mu.Unlock()

	final := StateFailed
	defer func() {
		w.mu.Lock()
		w.state = StateIdle
		w.mu.Unlock()
		slog.Debug("Chat exchange finished", "session", w.store.SessionID(), "outcome", final)
	}()

	userMsg, err := conversation.NewMessage(input, conversation.SenderUser)
	if err != nil {
		return Exchange{}, ErrEmptyMessage
	}
	userMsg, err = w.store.Append(ctx, userMsg)
	if err != nil {
		return Exchange{}, fmt.Errorf("store user message: %w", err)
	}
	if w.IsOpen() {
		notify.Send(ctx, w.notifier, notify.LevelInfo, "Message sent", "We'll respond to your message shortly.")
	}

	start := time.Now()
	reply := w.generator.Respond(ctx, input)
	metrics.ResponseLatency.WithLabelValues(w.generator.Name()).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if reply.Fallback {
		outcome = "fallback"
	}
	metrics.Responses.WithLabelValues(w.generator.Name(), outcome).Inc()

	agentMsg, err := conversation.NewMessage(reply.Content, conversation.SenderAgent)
	if err != nil {
		agentMsg, _ = conversation.NewMessage(responder.Acknowledgment, conversation.SenderAgent)
	}
	// The reply is stored even if the caller went away, so the user message
	// is never left without its counterpart.
	agentMsg, err = w.store.Append(context.WithoutCancel(ctx), agentMsg)
	if err != nil {
		return Exchange{User: userMsg}, fmt.Errorf("store reply: %w", err)
	}

	if reply.Fallback && w.IsOpen() {
		desc := "The assistant could not be reached; a fallback reply was sent."
		notify.Send(ctx, w.notifier, notify.LevelDestructive, "Assistant unavailable", desc)
	}

	final = StateSucceeded
	if reply.Fallback {
		final = StateFailed
	}
	return Exchange{User: userMsg, Reply: agentMsg, Fallback: reply.Fallback, State: final}, nil
}
