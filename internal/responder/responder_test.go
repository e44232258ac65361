package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rxdesk/rxdesk/internal/config"
	"github.com/rxdesk/rxdesk/internal/provider"
)

func TestRuleBasedHelloGreets(t *testing.T) {
	g := NewRuleBased(DefaultRules())
	r := g.Respond(context.Background(), "HeLLo there")
	if r.Fallback || !strings.HasPrefix(r.Content, "Hello! Welcome") {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestRuleBasedFirstMatchWins(t *testing.T) {
	g := NewRuleBased([]Rule{
		{Trigger: "refill", Response: "refill-answer"},
		{Trigger: "prescription", Response: "rx-answer"},
	})
	if got := g.Respond(context.Background(), "prescription refill please").Content; got != "refill-answer" {
		t.Fatalf("expected first rule to win, got %q", got)
	}
}

func TestRuleBasedFallsBackToAcknowledgment(t *testing.T) {
	g := NewRuleBased(DefaultRules())
	r := g.Respond(context.Background(), "zzz")
	if r.Content != Acknowledgment || r.Fallback {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestRuleBasedSkipsBlankRules(t *testing.T) {
	g := NewRuleBased([]Rule{{Trigger: "", Response: "matches everything"}, {Trigger: "x", Response: " "}})
	if got := g.Respond(context.Background(), "anything").Content; got != Acknowledgment {
		t.Fatalf("blank rules must be ignored, got %q", got)
	}
}

type fakeLLM struct {
	resp *provider.ChatResponse
	err  error
	last *provider.ChatRequest
}

func (f *fakeLLM) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	f.last = req
	return f.resp, f.err
}

func (f *fakeLLM) DefaultModel() string { return "fake" }

func TestRemoteSuccess(t *testing.T) {
	llm := &fakeLLM{resp: &provider.ChatResponse{Content: "  Take it with water.  "}}
	g := NewRemote(llm, "gpt-test", 500, 0.7)

	r := g.Respond(context.Background(), "how do I take ibuprofen?")
	if r.Fallback || r.Content != "Take it with water." {
		t.Fatalf("unexpected reply %+v", r)
	}
	if len(llm.last.Messages) != 2 || llm.last.Messages[0].Content != SystemPrompt || llm.last.Messages[1].Content != "how do I take ibuprofen?" {
		t.Fatalf("unexpected request messages %+v", llm.last.Messages)
	}
	if llm.last.MaxTokens != 500 || llm.last.Temperature != 0.7 || llm.last.Model != "gpt-test" {
		t.Fatalf("unexpected request params %+v", llm.last)
	}
}

func TestRemoteFailureReturnsApology(t *testing.T) {
	boom := errors.New("API error (status 503)")
	g := NewRemote(&fakeLLM{err: boom}, "m", 0, 0.7)

	r := g.Respond(context.Background(), "hello")
	if !r.Fallback || r.Content != Apology || !errors.Is(r.Cause, boom) {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestRemoteEmptyContentIsFallback(t *testing.T) {
	g := NewRemote(&fakeLLM{resp: &provider.ChatResponse{Content: "  "}}, "m", 500, 0.7)
	r := g.Respond(context.Background(), "hello")
	if !r.Fallback || r.Content != Apology {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	g, err := New(config.AssistantConfig{Strategy: config.StrategyRules}, nil)
	if err != nil || g.Name() != "rules" {
		t.Fatalf("expected rules strategy, got %v %v", g, err)
	}
	g, err = New(config.AssistantConfig{Strategy: config.StrategyRemote, MaxTokens: 500}, &fakeLLM{})
	if err != nil || g.Name() != "remote" {
		t.Fatalf("expected remote strategy, got %v %v", g, err)
	}
	if _, err := New(config.AssistantConfig{Strategy: config.StrategyRemote}, nil); err == nil {
		t.Fatal("expected error for remote without provider")
	}
	if _, err := New(config.AssistantConfig{Strategy: "magic"}, nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
