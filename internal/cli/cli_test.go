package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rxdesk/rxdesk/internal/config"
	"github.com/rxdesk/rxdesk/internal/connection"
	"github.com/rxdesk/rxdesk/internal/credentials"
	"github.com/rxdesk/rxdesk/internal/secrets"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RXDESK_HOME", "")
	t.Setenv("RXDESK_CONFIG", "")
	t.Setenv("RXDESK_ENV_FILE", "")
	key, err := secrets.NewMasterKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	t.Setenv("RXDESK_MASTER_KEY", secrets.EncodeMasterKey(key))
}

func TestSnippetCommand(t *testing.T) {
	var out bytes.Buffer
	snippetCmd.SetOut(&out)
	defer snippetCmd.SetOut(nil)

	if err := snippetCmd.RunE(snippetCmd, []string{"https://pharmacy.example.com"}); err != nil {
		t.Fatalf("snippet: %v", err)
	}
	if !strings.Contains(out.String(), "https://pharmacy.example.com/widget.js") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if err := snippetCmd.RunE(snippetCmd, []string{"pharmacy"}); err == nil {
		t.Fatal("expected invalid url error")
	}
}

func TestConnectAndDisconnectCommands(t *testing.T) {
	setupEnv(t)
	var probes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		if r.Header.Get("Api-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[]}`))
	}))
	defer srv.Close()
	t.Setenv("RXDESK_MESSAGING_API_BASE", srv.URL)

	connectInput = connection.Input{ApplicationID: "APP", APIToken: "wrong", Region: "EU"}
	if err := connectCmd.RunE(connectCmd, nil); !errors.Is(err, connection.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	connectInput = connection.Input{ApplicationID: "APP", APIToken: "tok", Region: "EU"}
	if err := connectCmd.RunE(connectCmd, nil); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if probes != 2 {
		t.Fatalf("expected 2 probes, got %d", probes)
	}

	a, err := newApp()
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	cred, err := a.credentials.Load()
	a.Close()
	if err != nil || cred.ApplicationID != "APP" {
		t.Fatalf("credential not stored: %+v %v", cred, err)
	}

	if err := disconnectCmd.RunE(disconnectCmd, nil); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	a, err = newApp()
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	defer a.Close()
	if _, err := a.credentials.Load(); !errors.Is(err, credentials.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after disconnect, got %v", err)
	}
}

func TestChatCommandPersistsExchange(t *testing.T) {
	setupEnv(t)
	chatSession, chatMessage = "cli-test", "When are your opening hours?"
	if err := chatCmd.RunE(chatCmd, nil); err != nil {
		t.Fatalf("chat: %v", err)
	}

	a, err := newApp()
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	defer a.Close()
	w, err := a.chats.Widget("cli-test")
	if err != nil {
		t.Fatalf("widget: %v", err)
	}
	n, err := w.Store().Count(t.Context())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// greeting + user + agent
	if n != 3 {
		t.Fatalf("count = %d", n)
	}
}

func TestNewGeneratorRemoteRequiresKey(t *testing.T) {
	_, err := newGenerator(config.AssistantConfig{Strategy: config.StrategyRemote})
	if err == nil {
		t.Fatal("expected error without api key")
	}
	gen, err := newGenerator(config.AssistantConfig{Strategy: config.StrategyRules})
	if err != nil || gen.Name() != "rules" {
		t.Fatalf("rules generator: %v %v", gen, err)
	}
}
