package timeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTimeline(t *testing.T) *TimelineService {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "timeline.db")
	svc, err := NewTimelineService(dbPath)
	if err != nil {
		t.Fatalf("failed to create timeline service: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
		_ = os.RemoveAll(dir)
	})
	return svc
}

func TestSettingsRoundTrip(t *testing.T) {
	svc := newTestTimeline(t)

	if _, err := svc.GetSetting("APP_ID"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for missing key, got %v", err)
	}
	if err := svc.SetSetting("APP_ID", "app-1"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := svc.SetSetting("APP_ID", "app-2"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	got, err := svc.GetSetting("APP_ID")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if got != "app-2" {
		t.Fatalf("expected app-2, got %q", got)
	}
}

func TestReplaceSettingsClearsStaleKeys(t *testing.T) {
	svc := newTestTimeline(t)
	_ = svc.SetSetting("APP_ID", "old")
	_ = svc.SetSetting("WEBHOOK_URL", "https://old.example.com")

	keys := []string{"APP_ID", "API_TOKEN", "WEBHOOK_URL", "REGION"}
	if err := svc.ReplaceSettings(keys, map[string]string{"APP_ID": "new", "API_TOKEN": "tok"}); err != nil {
		t.Fatalf("replace settings: %v", err)
	}

	if v, _ := svc.GetSetting("APP_ID"); v != "new" {
		t.Fatalf("expected APP_ID=new, got %q", v)
	}
	if _, err := svc.GetSetting("WEBHOOK_URL"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected stale WEBHOOK_URL removed, got %v", err)
	}
}

func TestDeleteSettings(t *testing.T) {
	svc := newTestTimeline(t)
	_ = svc.SetSetting("A", "1")
	_ = svc.SetSetting("B", "2")
	_ = svc.SetSetting("C", "3")

	if err := svc.DeleteSettings("A", "B"); err != nil {
		t.Fatalf("delete settings: %v", err)
	}
	for _, k := range []string{"A", "B"} {
		if _, err := svc.GetSetting(k); !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("expected %s removed, got %v", k, err)
		}
	}
	if v, _ := svc.GetSetting("C"); v != "3" {
		t.Fatalf("expected C untouched, got %q", v)
	}
	if err := svc.DeleteSettings(); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
}

func TestConversationLifecycle(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	blob, err := svc.LoadConversation(ctx, "s1")
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if blob != "" {
		t.Fatalf("expected empty blob, got %q", blob)
	}

	if err := svc.SaveConversation(ctx, "s1", `[{"id":"a"}]`); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.SaveConversation(ctx, "s1", `[{"id":"a"},{"id":"b"}]`); err != nil {
		t.Fatalf("resave: %v", err)
	}
	blob, _ = svc.LoadConversation(ctx, "s1")
	if blob != `[{"id":"a"},{"id":"b"}]` {
		t.Fatalf("unexpected blob %q", blob)
	}

	ids, err := svc.ListConversations()
	if err != nil || len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("unexpected conversations %v (%v)", ids, err)
	}

	if err := svc.DeleteConversation(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	blob, _ = svc.LoadConversation(ctx, "s1")
	if blob != "" {
		t.Fatalf("expected cleared blob, got %q", blob)
	}
}

func TestEventsFilterAndOrder(t *testing.T) {
	svc := newTestTimeline(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []TimelineEvent{
		{EventID: "e1", Timestamp: base, Kind: KindConnected, Summary: "connected"},
		{EventID: "e2", Timestamp: base.Add(time.Minute), Kind: KindMessage, SessionID: "s1", Summary: "hello"},
		{EventID: "e3", Timestamp: base.Add(2 * time.Minute), Kind: KindMessage, SessionID: "s2", Summary: "other"},
	}
	for i := range events {
		if err := svc.AddEvent(&events[i]); err != nil {
			t.Fatalf("add event: %v", err)
		}
	}

	all, err := svc.GetEvents(FilterArgs{})
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(all) != 3 || all[0].EventID != "e3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	msgs, _ := svc.GetEvents(FilterArgs{Kind: KindMessage, SessionID: "s1"})
	if len(msgs) != 1 || msgs[0].Summary != "hello" {
		t.Fatalf("unexpected filtered events %+v", msgs)
	}

	page, _ := svc.GetEvents(FilterArgs{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].EventID != "e2" {
		t.Fatalf("unexpected page %+v", page)
	}
}
