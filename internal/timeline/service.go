package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// TimelineService is the sqlite-backed store for settings, conversation logs
// and the audit timeline.
type TimelineService struct {
	db *sql.DB
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for dbs created before metadata existed (no-op if column exists).
	_, _ = db.Exec(`ALTER TABLE timeline ADD COLUMN metadata TEXT DEFAULT ''`)

	return &TimelineService{db: db}, nil
}

func (s *TimelineService) DB() *sql.DB { return s.db }

func (s *TimelineService) Close() error {
	return s.db.Close()
}

func (s *TimelineService) AddEvent(evt *TimelineEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	query := `
	INSERT INTO timeline (event_id, timestamp, kind, session_id, summary, metadata)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		evt.EventID,
		evt.Timestamp.UTC(),
		evt.Kind,
		evt.SessionID,
		evt.Summary,
		evt.Metadata,
	)
	return err
}

type FilterArgs struct {
	Kind      string
	SessionID string
	Limit     int
	Offset    int
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *TimelineService) GetEvents(filter FilterArgs) ([]TimelineEvent, error) {
	query := `SELECT id, COALESCE(event_id,''), timestamp, kind, COALESCE(session_id,''), COALESCE(summary,''), COALESCE(metadata,'') FROM timeline WHERE 1=1`
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.StartDate != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		var e TimelineEvent
		err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.Timestamp,
			&e.Kind,
			&e.SessionID,
			&e.Summary,
			&e.Metadata,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetSetting returns a setting value by key. Missing keys yield sql.ErrNoRows.
func (s *TimelineService) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetSetting persists a setting value.
func (s *TimelineService) SetSetting(key, value string) error {
	_, err := s.db.Exec(upsertSetting, key, value)
	return err
}

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// ReplaceSettings deletes every key in clear and then writes values, all in
// one transaction. Readers see either the old set or the new one.
func (s *TimelineService) ReplaceSettings(clear []string, values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteKeys(tx, clear); err != nil {
		return err
	}
	for k, v := range values {
		if _, err := tx.Exec(upsertSetting, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// DeleteSettings removes the given keys in one transaction.
func (s *TimelineService) DeleteSettings(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := deleteKeys(tx, keys); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteKeys(tx *sql.Tx, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := tx.Exec("DELETE FROM settings WHERE key IN ("+placeholders+")", args...)
	return err
}

// LoadConversation returns the serialized message log for a session, or an
// empty string if nothing has been saved yet.
func (s *TimelineService) LoadConversation(ctx context.Context, sessionID string) (string, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT messages FROM conversations WHERE session_id = ?", sessionID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return blob, nil
}

// SaveConversation replaces the full serialized log for a session.
func (s *TimelineService) SaveConversation(ctx context.Context, sessionID, blob string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, messages, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(session_id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at
	`, sessionID, blob)
	return err
}

// DeleteConversation drops a session's log.
func (s *TimelineService) DeleteConversation(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE session_id = ?", sessionID)
	return err
}

// ListConversations returns all session ids with a stored log.
func (s *TimelineService) ListConversations() ([]string, error) {
	rows, err := s.db.Query("SELECT session_id FROM conversations ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
