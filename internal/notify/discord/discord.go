// Package discord implements the notify Adapter for Discord via the REST API.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sundeepg98/colab-bridge/internal/notify"
)

// Severity embed colors.
const (
	colorSuccess = 0x36a64f
	colorError   = 0xd00000
	colorInfo    = 0x439fe0
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Adapter implements notify.Adapter for Discord.
type Adapter struct {
	session   session
	channelID string
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of a real discordgo session.
	Session session
}

// New creates a Discord Adapter. Sending embeds uses the REST API only, so
// no gateway connection is opened.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	s := opts.Session
	if s == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		s = dg
	}
	return &Adapter{session: s, channelID: opts.ChannelID}, nil
}

// Send posts the event as an embed with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       severityColor(ev.Severity),
	}
	for _, f := range ev.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	if _, err := a.session.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Close shuts the underlying session down.
func (a *Adapter) Close() error {
	return a.session.Close()
}

func severityColor(severity string) int {
	switch severity {
	case notify.SeveritySuccess:
		return colorSuccess
	case notify.SeverityError:
		return colorError
	default:
		return colorInfo
	}
}
