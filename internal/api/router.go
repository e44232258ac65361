// Package api exposes the console over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/chat"
	"github.com/rxdesk/rxdesk/internal/connection"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/timeline"
	"github.com/rxdesk/rxdesk/internal/webhook"
)

// maxBody caps JSON and webhook request bodies.
const maxBody = 1 << 20

// Deps are the components the router serves.
type Deps struct {
	Logger         *slog.Logger
	Connection     *connection.Controller
	Stats          Stats
	Chats          *chat.Manager
	Feed           *notify.Recorder
	Notifier       notify.Notifier
	Timeline       *timeline.TimelineService
	Bus            *bus.MessageBus
	AllowedOrigins []string
	Version        string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = d.Feed
	}
	h := &Handler{
		conn:     d.Connection,
		stats:    d.Stats,
		chats:    d.Chats,
		feed:     d.Feed,
		notifier: notifier,
		timeline: d.Timeline,
		version:  d.Version,
		started:  time.Now(),
	}

	r := chi.NewRouter()

	// Metrics first to capture all requests.
	r.Use(Metrics)
	r.Use(SecurityHeaders)
	r.Use(MaxBodySize(maxBody))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", webhook.SignatureHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.Health)

	// Provider callbacks authenticate by signature, not by origin.
	r.Method(http.MethodPost, "/webhooks/provider", webhook.NewHandler(d.Connection.State(), d.Bus))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/connection", h.Connection)
		r.Post("/connection/connect", h.Connect)
		r.Post("/connection/disconnect", h.Disconnect)

		r.Get("/stats/mau", h.MonthlyActiveUsers)
		r.Get("/stats/messages", h.TotalMessages)

		r.Route("/chat/{session}", func(r chi.Router) {
			r.Post("/open", h.OpenChat)
			r.Post("/close", h.CloseChat)
			r.Get("/messages", h.Messages)
			r.Post("/messages", h.SendMessage)
			r.Delete("/messages", h.ClearMessages)
			r.Get("/count", h.Count)
		})

		r.Get("/notifications", h.Notifications)
		r.Post("/bot/snippet", h.BotSnippet)
		r.Get("/timeline", h.Timeline)
	})

	return r
}
