// Package credentials persists the provider credential as four settings
// keys. The API token is stored encrypted.
package credentials

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rxdesk/rxdesk/internal/messaging"
	"github.com/rxdesk/rxdesk/internal/secrets"
	"github.com/rxdesk/rxdesk/internal/timeline"
)

// Persisted setting keys.
const (
	KeyAppID      = "APP_ID"
	KeyAPIToken   = "API_TOKEN"
	KeyWebhookURL = "WEBHOOK_URL"
	KeyRegion     = "REGION"
)

// Keys lists every key a credential occupies.
var Keys = []string{KeyAppID, KeyAPIToken, KeyWebhookURL, KeyRegion}

var (
	// ErrNotFound means no credential is stored.
	ErrNotFound = errors.New("credential not found")
	// ErrIncomplete means a required field is blank.
	ErrIncomplete = errors.New("application id and api token are required")
)

// Credential is the provider identity.
type Credential struct {
	ApplicationID string           `json:"application_id"`
	APIToken      string           `json:"-"`
	Region        messaging.Region `json:"region"`
	WebhookURL    string           `json:"webhook_url,omitempty"`
}

// Identity returns the fields platform calls run as.
func (c Credential) Identity() messaging.Identity {
	return messaging.Identity{AppID: c.ApplicationID, Token: c.APIToken, Region: c.Region}
}

// Complete reports whether both required fields are present.
func (c Credential) Complete() bool {
	return strings.TrimSpace(c.ApplicationID) != "" && strings.TrimSpace(c.APIToken) != ""
}

// Normalize trims fields and defaults the region.
func (c Credential) Normalize() Credential {
	return Credential{
		ApplicationID: strings.TrimSpace(c.ApplicationID),
		APIToken:      strings.TrimSpace(c.APIToken),
		Region:        messaging.ParseRegion(string(c.Region)),
		WebhookURL:    strings.TrimSpace(c.WebhookURL),
	}
}

// Store reads and writes the credential through the settings table.
type Store struct {
	db  *timeline.TimelineService
	key []byte
}

// NewStore returns a store encrypting the token with key (32 bytes).
func NewStore(db *timeline.TimelineService, key []byte) *Store {
	return &Store{db: db, key: key}
}

// Save replaces every persisted field in one transaction. Optional fields
// that are empty are removed rather than stored blank.
func (s *Store) Save(c Credential) error {
	c = c.Normalize()
	if !c.Complete() {
		return ErrIncomplete
	}
	sealed, err := secrets.EncryptBlobWithKey([]byte(c.APIToken), s.key)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	values := map[string]string{
		KeyAppID:    c.ApplicationID,
		KeyAPIToken: string(sealed),
		KeyRegion:   string(c.Region),
	}
	if c.WebhookURL != "" {
		values[KeyWebhookURL] = c.WebhookURL
	}
	if err := s.db.ReplaceSettings(Keys, values); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load returns the stored credential or ErrNotFound. A store holding only
// part of a credential also reports ErrNotFound.
func (s *Store) Load() (Credential, error) {
	appID, err := s.get(KeyAppID)
	if err != nil {
		return Credential{}, err
	}
	sealed, err := s.get(KeyAPIToken)
	if err != nil {
		return Credential{}, err
	}
	if appID == "" || sealed == "" {
		return Credential{}, ErrNotFound
	}
	token, err := secrets.DecryptBlobWithKey([]byte(sealed), s.key)
	if err != nil {
		return Credential{}, fmt.Errorf("decrypt token: %w", err)
	}
	region, err := s.get(KeyRegion)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Credential{}, err
	}
	webhookURL, err := s.get(KeyWebhookURL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Credential{}, err
	}
	return Credential{
		ApplicationID: appID,
		APIToken:      string(token),
		Region:        messaging.ParseRegion(region),
		WebhookURL:    webhookURL,
	}, nil
}

// Clear removes all four keys atomically.
func (s *Store) Clear() error {
	if err := s.db.DeleteSettings(Keys...); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Present reports which keys currently exist.
func (s *Store) Present() (map[string]bool, error) {
	out := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		_, err := s.get(k)
		switch {
		case err == nil:
			out[k] = true
		case errors.Is(err, ErrNotFound):
			out[k] = false
		default:
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) get(key string) (string, error) {
	v, err := s.db.GetSetting(key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}
