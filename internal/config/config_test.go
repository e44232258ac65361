package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected gateway host 127.0.0.1, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 18790 {
		t.Errorf("expected gateway port 18790, got %d", cfg.Gateway.Port)
	}
	if cfg.Assistant.Strategy != StrategyRules {
		t.Errorf("expected rules strategy by default, got %s", cfg.Assistant.Strategy)
	}
	if cfg.Assistant.MaxTokens != 500 {
		t.Errorf("expected maxTokens 500, got %d", cfg.Assistant.MaxTokens)
	}
	if cfg.Messaging.Timeout != 15*time.Second {
		t.Errorf("expected messaging timeout 15s, got %v", cfg.Messaging.Timeout)
	}
	if got := cfg.Gateway.Addr(); got != "127.0.0.1:18790" {
		t.Errorf("unexpected gateway addr %q", got)
	}
}

func setHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("HOME", dir)
	t.Setenv("RXDESK_HOME", "")
	t.Setenv("RXDESK_CONFIG", "")
	t.Setenv("RXDESK_ENV_FILE", "")
}

func TestLoadDefaults(t *testing.T) {
	setHome(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Assistant.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.Assistant.Temperature)
	}
	if strings.HasPrefix(cfg.Paths.DBPath, "~") {
		t.Errorf("expected expanded db path, got %s", cfg.Paths.DBPath)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	setHome(t, tmpDir)
	configDir := filepath.Join(tmpDir, ".rxdesk")
	os.MkdirAll(configDir, 0o755)

	configJSON := `{
		"assistant": {
			"strategy": "remote",
			"model": "${RXDESK_TEST_MODEL}"
		},
		"gateway": {
			"port": 9999
		}
	}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configJSON), 0o600)
	t.Setenv("RXDESK_TEST_MODEL", "gpt-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Assistant.Strategy != StrategyRemote {
		t.Errorf("expected remote strategy, got %s", cfg.Assistant.Strategy)
	}
	if cfg.Assistant.Model != "gpt-test" {
		t.Errorf("expected substituted model, got %s", cfg.Assistant.Model)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	// Defaults survive partial files.
	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %s", cfg.Gateway.Host)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	setHome(t, tmpDir)
	configDir := filepath.Join(tmpDir, ".rxdesk")
	os.MkdirAll(configDir, 0o755)
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(`{"gateway":{"port":9999}}`), 0o600)

	t.Setenv("RXDESK_GATEWAY_PORT", "7000")
	t.Setenv("RXDESK_ASSISTANT_STRATEGY", "bogus")
	t.Setenv("RXDESK_MESSAGING_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.Port != 7000 {
		t.Errorf("expected env port 7000, got %d", cfg.Gateway.Port)
	}
	if cfg.Assistant.Strategy != StrategyRules {
		t.Errorf("expected unknown strategy to fall back to rules, got %s", cfg.Assistant.Strategy)
	}
	if cfg.Messaging.Timeout != 3*time.Second {
		t.Errorf("expected messaging timeout 3s, got %v", cfg.Messaging.Timeout)
	}
}

func TestConfigPathRespectsConfigAndHome(t *testing.T) {
	t.Setenv("RXDESK_HOME", "/srv/rxhome")
	t.Setenv("RXDESK_CONFIG", "~/.rxdesk/custom.json")

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if path != filepath.Join("/srv/rxhome", ".rxdesk", "custom.json") {
		t.Fatalf("unexpected config path: %q", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	setHome(t, tmpDir)

	cfg := DefaultConfig()
	cfg.Gateway.Port = 12345
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Gateway.Port != 12345 {
		t.Errorf("expected saved port, got %d", loaded.Gateway.Port)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("credential validated", "region", "EU")

	if !strings.Contains(stderr.String(), "credential validated") {
		t.Errorf("expected text output, got %q", stderr.String())
	}
	if !strings.Contains(file.String(), `"region":"EU"`) {
		t.Errorf("expected JSON output, got %q", file.String())
	}
}
