package alarm

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts alarm escalations to a Slack channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

// NewSlackNotifier creates a notifier using a bot token (xoxb-...).
func NewSlackNotifier(token, channelID string) *SlackNotifier {
	return &SlackNotifier{client: slackapi.New(token), channelID: channelID}
}

// Alert posts the alert with an attention-colored attachment.
func (n *SlackNotifier) Alert(ctx context.Context, a Alert) error {
	title := a.Title
	if a.Repeat > 0 {
		title = fmt.Sprintf("%s (reminder %d)", a.Title, a.Repeat)
	}
	attachment := slackapi.Attachment{
		Color: "#E74C3C",
		Title: title,
		Text:  a.Body,
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionText(title, false),
		slackapi.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return fmt.Errorf("alarm: slack send: %w", err)
	}
	return nil
}
