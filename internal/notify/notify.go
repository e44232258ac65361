// Package notify delivers user-visible notifications (console toasts) to one
// or more sinks.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the notification style.
type Level string

const (
	LevelInfo        Level = "info"
	LevelWarning     Level = "warning"
	LevelDestructive Level = "destructive"
)

// Notification is one transient user-facing message.
type Notification struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Time        time.Time `json:"time"`
}

// New builds a notification stamped now.
func New(level Level, title, description string) Notification {
	return Notification{
		ID:          uuid.NewString(),
		Level:       level,
		Title:       title,
		Description: description,
		Time:        time.Now().UTC(),
	}
}

// Notifier is a notification sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to slog.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	attrs := []any{"title", n.Title, "description", n.Description}
	switch n.Level {
	case LevelDestructive:
		slog.Error("Notification", attrs...)
	case LevelWarning:
		slog.Warn("Notification", attrs...)
	default:
		slog.Info("Notification", attrs...)
	}
	return nil
}

// Multi fans out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps the most recent notifications for the console feed.
type Recorder struct {
	mu    sync.Mutex
	size  int
	items []Notification
}

// NewRecorder keeps at most size notifications (minimum 1).
func NewRecorder(size int) *Recorder {
	if size < 1 {
		size = 1
	}
	return &Recorder{size: size}
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.size; over > 0 {
		r.items = append([]Notification(nil), r.items[over:]...)
	}
	return nil
}

// Recent returns notifications newest first.
func (r *Recorder) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	for i, n := range r.items {
		out[len(r.items)-1-i] = n
	}
	return out
}

// Send is a convenience that builds and delivers a notification, logging
// sink failures instead of returning them.
func Send(ctx context.Context, sink Notifier, level Level, title, description string) {
	if sink == nil {
		return
	}
	if err := sink.Notify(ctx, New(level, title, description)); err != nil {
		slog.Warn("Notification sink failed", "title", title, "error", err)
	}
}
