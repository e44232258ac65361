package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rxdesk/rxdesk/internal/botembed"
	"github.com/rxdesk/rxdesk/internal/chat"
	"github.com/rxdesk/rxdesk/internal/connection"
	"github.com/rxdesk/rxdesk/internal/messaging"
	"github.com/rxdesk/rxdesk/internal/notify"
	"github.com/rxdesk/rxdesk/internal/timeline"
)

// Stats queries provider analytics for the connected identity.
type Stats interface {
	MonthlyActiveUsers(ctx context.Context, id messaging.Identity, now time.Time) (*messaging.MAU, error)
	TotalMessages(ctx context.Context, id messaging.Identity) (int, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	conn     *connection.Controller
	stats    Stats
	chats    *chat.Manager
	feed     *notify.Recorder
	notifier notify.Notifier
	timeline *timeline.TimelineService
	version  string
	started  time.Time
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decode(r *http.Request, out any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(out)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"connected":      h.conn.State().Snapshot().Connected(),
	})
}

func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.conn.State().Snapshot())
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var in connection.Input
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	res, err := h.conn.Connect(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, connection.ErrAlreadyConnected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, connection.ErrMissingCredentials), errors.Is(err, connection.ErrInvalidWebhookURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, connection.ErrInvalidCredentials):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.conn.Disconnect(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.conn.State().Snapshot())
}

func (h *Handler) MonthlyActiveUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w)
	if !ok {
		return
	}
	mau, err := h.stats.MonthlyActiveUsers(r.Context(), id, time.Now())
	if err != nil {
		providerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mau)
}

func (h *Handler) TotalMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w)
	if !ok {
		return
	}
	total, err := h.stats.TotalMessages(r.Context(), id)
	if err != nil {
		providerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_count": total})
}

func (h *Handler) identity(w http.ResponseWriter) (messaging.Identity, bool) {
	id, err := h.conn.Identity()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return messaging.Identity{}, false
	}
	return id, true
}

func providerError(w http.ResponseWriter, err error) {
	var apiErr *messaging.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "provider unavailable")
}

func (h *Handler) widget(w http.ResponseWriter, r *http.Request) (*chat.Widget, bool) {
	wd, err := h.chats.Widget(chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return wd, true
}

func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	msgs, err := wd.Open(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"open": true, "messages": msgs})
}

func (h *Handler) CloseChat(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	wd.Close()
	writeJSON(w, http.StatusOK, map[string]any{"open": false})
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	msgs, err := wd.Messages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"open":     wd.IsOpen(),
		"state":    wd.State(),
		"messages": msgs,
	})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	ex, err := wd.Send(r.Context(), body.Content)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ex)
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	if err := wd.Store().Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	wd, ok := h.widget(w, r)
	if !ok {
		return
	}
	n, err := wd.Store().Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Recent())
}

func (h *Handler) BotSnippet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BotURL string `json:"bot_url"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	code, err := botembed.Snippet(body.BotURL)
	if err != nil {
		notify.Send(r.Context(), h.notifier, notify.LevelDestructive, "Invalid Domain", "Please enter a valid domain URL (e.g., https://example.com)")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	events, err := h.timeline.GetEvents(timeline.FilterArgs{
		Kind:      q.Get("kind"),
		SessionID: q.Get("session"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []timeline.TimelineEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
