// Package slack implements the notify Adapter for Slack via the Web API.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/sundeepg98/colab-bridge/internal/notify"
)

// Severity sidebar colors, matching Slack attachment conventions.
const (
	colorSuccess = "#36a64f"
	colorError   = "#d00000"
	colorInfo    = "#439fe0"
)

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements notify.Adapter for Slack.
type Adapter struct {
	client    client
	channelID string
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client client
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	c := opts.Client
	if c == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		c = slackapi.New(opts.BotToken)
	}
	return &Adapter{client: c, channelID: opts.ChannelID}, nil
}

// Send posts the event as an attachment with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	attachment := slackapi.Attachment{
		Title: ev.Title,
		Text:  ev.Body,
		Color: severityColor(ev.Severity),
	}
	for _, f := range ev.Fields {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Web API client is stateless.
func (a *Adapter) Close() error { return nil }

func severityColor(severity string) string {
	switch severity {
	case notify.SeveritySuccess:
		return colorSuccess
	case notify.SeverityError:
		return colorError
	default:
		return colorInfo
	}
}
