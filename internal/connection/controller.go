package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/credentials"
	"github.com/rxdesk/rxdesk/internal/messaging"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/webhook"
)

var (
	ErrAlreadyConnected   = errors.New("already connected; disconnect first")
	ErrMissingCredentials = errors.New("application id and api token are required")
	ErrInvalidWebhookURL  = errors.New("webhook url must be an absolute http or https url")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConnected       = errors.New("not connected")
)

// Validator confirms a credential against the provider.
type Validator interface {
	Validate(ctx context.Context, appID, token string, region messaging.Region) bool
}

// Dispatcher delivers signed webhook events.
type Dispatcher interface {
	Dispatch(ctx context.Context, url string, evt webhook.Event, secret string) bool
}

// CredentialStore persists the credential.
type CredentialStore interface {
	Save(credentials.Credential) error
	Load() (credentials.Credential, error)
	Clear() error
}

// Input is the settings form.
type Input struct {
	ApplicationID string `json:"application_id"`
	APIToken      string `json:"api_token"`
	Region        string `json:"region"`
	WebhookURL    string `json:"webhook_url"`
}

// Result describes a successful Connect.
type Result struct {
	Snapshot    Snapshot `json:"connection"`
	WebhookSent bool     `json:"webhook_sent"`
	WebhookOK   bool     `json:"webhook_ok"`
}

// DispatchRecord is the webhook bus payload for an outbound delivery.
type DispatchRecord struct {
	Category string `json:"category"`
	URL      string `json:"url"`
	OK       bool   `json:"ok"`
}

// Controller drives Disconnected → Validating → Connected and back. It is the
// only writer of its ConnectionState.
type Controller struct {
	store      CredentialStore
	validator  Validator
	dispatcher Dispatcher
	notifier   notify.Notifier
	bus        *bus.MessageBus
	state      *ConnectionState

	mu  sync.Mutex // serializes Connect/Disconnect
	now func() time.Time
}

func NewController(store CredentialStore, v Validator, d Dispatcher, n notify.Notifier, b *bus.MessageBus) *Controller {
	return &Controller{
		store:      store,
		validator:  v,
		dispatcher: d,
		notifier:   n,
		bus:        b,
		state:      newConnectionState(),
		now:        time.Now,
	}
}

// State returns the shared read-only view.
func (c *Controller) State() *ConnectionState { return c.state }

// Identity returns the connected identity for provider calls.
func (c *Controller) Identity() (messaging.Identity, error) {
	id, ok := c.state.identity()
	if !ok {
		return messaging.Identity{}, ErrNotConnected
	}
	return id, nil
}

// Boot loads any persisted credential into the shared state. A stored
// credential was validated when it was saved, so it is trusted here.
func (c *Controller) Boot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.Load()
	if errors.Is(err, credentials.ErrNotFound) {
		c.state.set(Snapshot{Status: StatusDisconnected}, "")
		return nil
	}
	if err != nil {
		c.state.set(Snapshot{Status: StatusDisconnected, LastError: err.Error()}, "")
		return fmt.Errorf("boot: %w", err)
	}
	c.state.set(connectedSnapshot(cred, c.now()), cred.APIToken)
	slog.Info("Restored provider connection", "app_id", cred.ApplicationID, "region", cred.Region)
	c.publish(bus.KindConnected)
	return nil
}

// Connect validates and persists a credential.
func (c *Controller) Connect(ctx context.Context, in Input) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Snapshot().Status == StatusConnected {
		return Result{}, ErrAlreadyConnected
	}

	cred := credentials.Credential{
		ApplicationID: in.ApplicationID,
		APIToken:      in.APIToken,
		Region:        messaging.Region(in.Region),
		WebhookURL:    in.WebhookURL,
	}.Normalize()

	if !cred.Complete() {
		c.state.setStatus(StatusDisconnected, ErrMissingCredentials.Error())
		notify.Send(ctx, c.notifier, notify.LevelDestructive, "Missing credentials", "Please provide both an Application ID and an API token.")
		return Result{}, ErrMissingCredentials
	}
	if cred.WebhookURL != "" && !validWebhookURL(cred.WebhookURL) {
		c.state.setStatus(StatusDisconnected, ErrInvalidWebhookURL.Error())
		notify.Send(ctx, c.notifier, notify.LevelDestructive, "Invalid webhook URL", "The webhook URL must start with http:// or https://.")
		return Result{}, ErrInvalidWebhookURL
	}

	c.state.setStatus(StatusValidating, "")
	connected := false
	failure := ""
	defer func() {
		if !connected {
			c.state.setStatus(StatusDisconnected, failure)
		}
	}()

	if !c.validator.Validate(ctx, cred.ApplicationID, cred.APIToken, cred.Region) {
		failure = ErrInvalidCredentials.Error()
		notify.Send(ctx, c.notifier, notify.LevelDestructive, "Invalid credentials", "Please check your Application ID, API token and region.")
		return Result{}, ErrInvalidCredentials
	}

	res := Result{}
	if cred.WebhookURL != "" {
		res.WebhookSent = true
		evt := webhook.NewConnectivityTest(cred.ApplicationID, string(cred.Region), c.now())
		res.WebhookOK = c.dispatcher.Dispatch(ctx, cred.WebhookURL, evt, cred.APIToken)
		if c.bus != nil {
			c.bus.Publish(bus.Event{Topic: bus.TopicWebhook, Kind: bus.KindDispatched, Payload: DispatchRecord{
				Category: evt.Category,
				URL:      cred.WebhookURL,
				OK:       res.WebhookOK,
			}})
		}
		if !res.WebhookOK {
			notify.Send(ctx, c.notifier, notify.LevelWarning, "Webhook test failed", "Credentials were saved, but the webhook endpoint did not accept the test event.")
		}
	}

	if err := c.store.Save(cred); err != nil {
		failure = err.Error()
		notify.Send(ctx, c.notifier, notify.LevelDestructive, "Could not save credentials", err.Error())
		return Result{}, fmt.Errorf("persist credential: %w", err)
	}

	connected = true
	c.state.set(connectedSnapshot(cred, c.now()), cred.APIToken)
	slog.Info("Provider connected", "app_id", cred.ApplicationID, "region", cred.Region, "webhook", cred.WebhookURL != "")
	notify.Send(ctx, c.notifier, notify.LevelInfo, "Connected", "Successfully connected to the messaging provider.")
	c.publish(bus.KindConnected)

	res.Snapshot = c.state.Snapshot()
	return res, nil
}

// Disconnect clears every persisted field and always ends disconnected.
// A storage error is returned but does not block the transition.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.Clear()
	lastErr := ""
	if err != nil {
		lastErr = err.Error()
		slog.Error("Clearing credentials failed", "error", err)
	}
	c.state.set(Snapshot{Status: StatusDisconnected, LastError: lastErr}, "")
	notify.Send(ctx, c.notifier, notify.LevelInfo, "Disconnected", "Messaging provider credentials were removed.")
	c.publish(bus.KindDisconnected)
	return err
}

func (c *Controller) publish(kind string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Topic: bus.TopicConnection, Kind: kind, Payload: c.state.Snapshot()})
}

func connectedSnapshot(cred credentials.Credential, now time.Time) Snapshot {
	t := now.UTC()
	return Snapshot{
		Status:        StatusConnected,
		ApplicationID: cred.ApplicationID,
		Region:        cred.Region,
		WebhookURL:    cred.WebhookURL,
		ConnectedAt:   &t,
	}
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}
