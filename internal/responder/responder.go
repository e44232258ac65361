// Package responder produces the agent reply to a user chat message.
package responder

import (
	"context"
	"fmt"

	"github.com/rxdesk/rxdesk/internal/config"
	"github.com/rxdesk/rxdesk/internal/provider"
)

// Reply is a generated counterpart message. Content is never empty.
// Fallback is set when the strategy failed and Content is a canned apology;
// Cause then holds the underlying error.
type Reply struct {
	Content  string
	Fallback bool
	Cause    error
}

// Generator produces replies. Implementations never return an empty Reply.
type Generator interface {
	Respond(ctx context.Context, content string) Reply
	Name() string
}

// New selects the strategy named by cfg.Strategy. The remote strategy uses
// llm, which must be non-nil.
func New(cfg config.AssistantConfig, llm provider.LLMProvider) (Generator, error) {
	switch cfg.Strategy {
	case config.StrategyRemote:
		if llm == nil {
			return nil, fmt.Errorf("remote strategy requires a completion provider")
		}
		return NewRemote(llm, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case config.StrategyRules, "":
		return NewRuleBased(DefaultRules()), nil
	default:
		return nil, fmt.Errorf("unknown assistant strategy %q", cfg.Strategy)
	}
}
