package timeline

import (
	"time"
)

// Event kinds recorded in the timeline.
const (
	KindConnected    = "CONNECTED"
	KindDisconnected = "DISCONNECTED"
	KindMessage      = "MESSAGE"
	KindWebhookIn    = "WEBHOOK_IN"
	KindWebhookOut   = "WEBHOOK_OUT"
)

// TimelineEvent is one audited occurrence in the integration.
type TimelineEvent struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`           // Unique ID (message id, webhook id)
	Timestamp time.Time `json:"timestamp"`          // When it happened
	Kind      string    `json:"kind"`               // CONNECTED, MESSAGE, WEBHOOK_IN, ...
	SessionID string    `json:"session_id"`         // Conversation session, if any
	Summary   string    `json:"summary"`            // Short human-readable line
	Metadata  string    `json:"metadata,omitempty"` // JSON blob for detail
}

// Schema is applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS timeline (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT,
	timestamp DATETIME NOT NULL,
	kind TEXT NOT NULL,
	session_id TEXT DEFAULT '',
	summary TEXT DEFAULT '',
	metadata TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_timeline_timestamp ON timeline(timestamp);
CREATE INDEX IF NOT EXISTS idx_timeline_session ON timeline(session_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	session_id TEXT PRIMARY KEY,
	messages TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
