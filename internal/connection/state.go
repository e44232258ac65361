// Package connection owns the provider connection lifecycle and the shared
// read-only view of it.
package connection

import (
	"sync"
	"time"

	"github.com/rxdesk/rxdesk/internal/messaging"
)

// Status is the controller state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusValidating   Status = "validating"
	StatusConnected    Status = "connected"
)

// Snapshot is an immutable copy of the connection state. It never carries
// the API token.
type Snapshot struct {
	Status        Status           `json:"status"`
	ApplicationID string           `json:"application_id,omitempty"`
	Region        messaging.Region `json:"region,omitempty"`
	WebhookURL    string           `json:"webhook_url,omitempty"`
	ConnectedAt   *time.Time       `json:"connected_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

// Connected reports whether the snapshot is in the connected state.
func (s Snapshot) Connected() bool { return s.Status == StatusConnected }

// ConnectionState is shared by every reader; only the Controller writes it.
type ConnectionState struct {
	mu    sync.RWMutex
	snap  Snapshot
	token string
}

func newConnectionState() *ConnectionState {
	return &ConnectionState{snap: Snapshot{Status: StatusDisconnected}}
}

// Snapshot returns the current state.
func (s *ConnectionState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	if s.snap.ConnectedAt != nil {
		t := *s.snap.ConnectedAt
		out.ConnectedAt = &t
	}
	return out
}

// WebhookSecret returns the signing key for inbound webhooks while connected.
func (s *ConnectionState) WebhookSecret() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Status != StatusConnected || s.token == "" {
		return "", false
	}
	return s.token, true
}

// identity returns the live identity for provider calls while connected.
func (s *ConnectionState) identity() (messaging.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Status != StatusConnected {
		return messaging.Identity{}, false
	}
	return messaging.Identity{AppID: s.snap.ApplicationID, Token: s.token, Region: s.snap.Region}, true
}

func (s *ConnectionState) set(snap Snapshot, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.token = token
}

func (s *ConnectionState) setStatus(status Status, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Status = status
	s.snap.LastError = lastErr
}
