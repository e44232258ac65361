package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/chat"
	"github.com/rxdesk/rxdesk/internal/config"
	"github.com/rxdesk/rxdesk/internal/connection"
	"github.com/rxdesk/rxdesk/internal/credentials"
	"github.com/rxdesk/rxdesk/internal/messaging"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/provider"
	"github.com/rxdesk/rxdesk/internal/responder"
	"github.com/rxdesk/rxdesk/internal/secrets"
	"github.com/rxdesk/rxdesk/internal/telemetry"
	"github.com/rxdesk/rxdesk/internal/timeline"
	"github.com/rxdesk/rxdesk/internal/webhook"
)

// app holds the wired components every command shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	db          *timeline.TimelineService
	bus         *bus.MessageBus
	feed        *notify.Recorder
	notifier    notify.Notifier
	client      *messaging.Client
	credentials *credentials.Store
	controller  *connection.Controller
	chats       *chat.Manager
}

// newApp loads config and wires the components in dependency order.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o700); err != nil {
		closeLog()
		return nil, fmt.Errorf("data dir: %w", err)
	}
	db, err := timeline.NewTimelineService(cfg.Paths.DBPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open database: %w", err)
	}

	key, err := secrets.LoadOrCreateMasterKey()
	if err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("master key: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		db:       db,
		bus:      bus.NewMessageBus(),
		feed:     notify.NewRecorder(cfg.Notify.FeedSize),
	}

	sinks := notify.Multi{a.feed, notify.LogNotifier{}}
	if cfg.Notify.SlackToken != "" && cfg.Notify.SlackChannel != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, ""))
	}
	a.notifier = sinks

	httpClient := telemetry.NewHTTPClient(cfg.Messaging.Timeout)
	a.client = messaging.NewClient(httpClient, cfg.Messaging.APIBase)
	a.credentials = credentials.NewStore(db, key)
	a.controller = connection.NewController(a.credentials, a.client, webhook.NewDispatcher(httpClient), a.notifier, a.bus)

	gen, err := newGenerator(cfg.Assistant)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.chats = chat.NewManager(db, a.bus, gen, a.notifier)
	return a, nil
}

func newGenerator(cfg config.AssistantConfig) (responder.Generator, error) {
	var llm provider.LLMProvider
	if cfg.Strategy == config.StrategyRemote {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("assistant strategy %q needs RXDESK_ASSISTANT_API_KEY or OPENAI_API_KEY", cfg.Strategy)
		}
		llm = provider.NewOpenAIProvider(cfg.APIKey, cfg.APIBase, cfg.Model,
			provider.WithHTTPClient(telemetry.NewHTTPClient(cfg.Timeout)))
	}
	return responder.New(cfg, llm)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("Closing database failed", "error", err)
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
