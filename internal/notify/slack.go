package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier posts warning and destructive notifications to a channel.
// Info notifications are skipped to keep the channel quiet.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier builds a sink. apiURL may be empty for the public API.
func NewSlackNotifier(token, channel, apiURL string) *SlackNotifier {
	opts := []slack.Option{}
	if base := strings.TrimSpace(apiURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, slack.OptionAPIURL(base))
	}
	return &SlackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Level == LevelInfo {
		return nil
	}
	text := fmt.Sprintf("%s *%s*", levelEmoji(n.Level), n.Title)
	if n.Description != "" {
		text += "\n" + n.Description
	}
	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}

func levelEmoji(l Level) string {
	if l == LevelDestructive {
		return ":rotating_light:"
	}
	return ":warning:"
}
