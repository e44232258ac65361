package responder

import (
	"context"
	"strings"
)

// Rule maps a trigger phrase to a canned response.
type Rule struct {
	Trigger  string
	Response string
}

// Acknowledgment is returned when no rule matches.
const Acknowledgment = "Thanks for your message! Our team will get back to you soon."

// DefaultRules is the pharmacy rule table, evaluated top to bottom.
func DefaultRules() []Rule {
	return []Rule{
		{"hello", "Hello! Welcome to our pharmacy. How can I help you today?"},
		{"good morning", "Good morning! How can I help you today?"},
		{"refill", "I can help with refills. Please share your prescription number and we'll have it ready within 24 hours."},
		{"prescription", "For prescription questions, please have your prescription number handy. A pharmacist will review your request shortly."},
		{"opening hours", "We're open Monday to Friday 8am-8pm and Saturday 9am-5pm."},
		{"hours", "We're open Monday to Friday 8am-8pm and Saturday 9am-5pm."},
		{"delivery", "We offer same-day delivery for orders placed before 2pm."},
		{"insurance", "We accept most major insurance plans. Please bring your insurance card on your next visit."},
		{"side effect", "If you're experiencing side effects, please contact your doctor or call us to speak with a pharmacist. For emergencies, call your local emergency number."},
		{"thank", "You're welcome! Is there anything else I can help you with?"},
	}
}

// RuleBased answers by case-insensitive substring match; first match wins.
// It never fails and never blocks.
type RuleBased struct {
	rules []Rule
}

func NewRuleBased(rules []Rule) *RuleBased {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		trigger := strings.ToLower(strings.TrimSpace(r.Trigger))
		if trigger == "" || strings.TrimSpace(r.Response) == "" {
			continue
		}
		normalized = append(normalized, Rule{Trigger: trigger, Response: r.Response})
	}
	return &RuleBased{rules: normalized}
}

func (g *RuleBased) Name() string { return "rules" }

func (g *RuleBased) Respond(_ context.Context, content string) Reply {
	lower := strings.ToLower(content)
	for _, r := range g.rules {
		if strings.Contains(lower, r.Trigger) {
			return Reply{Content: r.Response}
		}
	}
	return Reply{Content: Acknowledgment}
}
