// Package config provides configuration types and loading for rxdesk.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Messaging, Assistant, Gateway, Events, Notify, Telemetry, Log.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Messaging MessagingConfig `json:"messaging"`
	Assistant AssistantConfig `json:"assistant"`
	Gateway   GatewayConfig   `json:"gateway"`
	Events    EventsConfig    `json:"events"`
	Notify    NotifyConfig    `json:"notify"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Log       LogConfig       `json:"log"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// ---------------------------------------------------------------------------
// Messaging – conversational-messaging provider
// ---------------------------------------------------------------------------

// MessagingConfig configures calls against the messaging provider.
// APIBase, when set, replaces the region-resolved endpoint for every request
// (sandbox deployments and local stubs).
type MessagingConfig struct {
	APIBase string        `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Timeout time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Assistant – chat widget response generation
// ---------------------------------------------------------------------------

const (
	StrategyRules  = "rules"
	StrategyRemote = "remote"
)

// AssistantConfig selects and configures the chat response strategy.
type AssistantConfig struct {
	Strategy    string        `json:"strategy" envconfig:"STRATEGY"` // "rules" or "remote"
	APIKey      string        `json:"apiKey" envconfig:"API_KEY"`
	APIBase     string        `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Model       string        `json:"model" envconfig:"MODEL"`
	MaxTokens   int           `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64       `json:"temperature" envconfig:"TEMPERATURE"`
	Timeout     time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains API server settings.
type GatewayConfig struct {
	Host           string   `json:"host" envconfig:"HOST"`
	Port           int      `json:"port" envconfig:"PORT"`
	AllowedOrigins []string `json:"allowedOrigins" envconfig:"ALLOWED_ORIGINS"`
}

// ---------------------------------------------------------------------------
// Events – optional Kafka mirror of bus events
// ---------------------------------------------------------------------------

// EventsConfig configures the Kafka mirror. Empty Brokers disables it.
type EventsConfig struct {
	KafkaBrokers string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic        string `json:"topic" envconfig:"KAFKA_TOPIC"`
}

// ---------------------------------------------------------------------------
// Notify – notification sinks beyond the in-process feed
// ---------------------------------------------------------------------------

// NotifyConfig configures the Slack notification sink. Empty token disables it.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
	FeedSize     int    `json:"feedSize" envconfig:"FEED_SIZE"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"ENABLED"`
	ServiceName string `json:"serviceName" envconfig:"SERVICE_NAME"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `json:"level" envconfig:"LEVEL"`
	File  string `json:"file" envconfig:"FILE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.rxdesk",
			DBPath:  "~/.rxdesk/rxdesk.db",
		},
		Messaging: MessagingConfig{
			Timeout: 15 * time.Second,
		},
		Assistant: AssistantConfig{
			Strategy:    StrategyRules,
			APIBase:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   500,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Gateway: GatewayConfig{
			Host:           "127.0.0.1", // Secure default
			Port:           18790,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Events: EventsConfig{
			Topic: "rxdesk.events",
		},
		Notify: NotifyConfig{
			FeedSize: 50,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rxdesk",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Addr returns the host:port the API server listens on.
func (g GatewayConfig) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}
