package responder

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rxdesk/rxdesk/internal/provider"
)

// SystemPrompt is the fixed instruction sent with every completion.
const SystemPrompt = "You are a helpful pharmacy assistant. Be precise and concise."

// Apology replaces the reply when the completion call fails.
const Apology = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

var errEmptyCompletion = errors.New("completion returned no content")

// Remote delegates to a chat-completion provider and absorbs every failure
// into Apology.
type Remote struct {
	llm         provider.LLMProvider
	model       string
	maxTokens   int
	temperature float64
}

func NewRemote(llm provider.LLMProvider, model string, maxTokens int, temperature float64) *Remote {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Remote{llm: llm, model: model, maxTokens: maxTokens, temperature: temperature}
}

func (g *Remote) Name() string { return "remote" }

func (g *Remote) Respond(ctx context.Context, content string) Reply {
	resp, err := g.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: content},
		},
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		slog.Warn("Remote reply failed, using fallback", "model", g.model, "error", err)
		return Reply{Content: Apology, Fallback: true, Cause: err}
	}
	return Reply{Content: strings.TrimSpace(resp.Content)}
}
