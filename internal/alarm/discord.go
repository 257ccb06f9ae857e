package alarm

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use,
// enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alarm escalations to a Discord channel so they
// reach the owner while the app is not in the foreground.
type DiscordNotifier struct {
	session   discordSession
	channelID string
}

// NewDiscordNotifier creates a notifier using a bot token.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("alarm: discord session: %w", err)
	}
	return &DiscordNotifier{session: s, channelID: channelID}, nil
}

// Alert posts the alert as an embed. Repeats are marked so an unsilenced
// alarm is visibly escalating, not duplicated noise.
func (n *DiscordNotifier) Alert(ctx context.Context, a Alert) error {
	title := a.Title
	if a.Repeat > 0 {
		title = fmt.Sprintf("%s (reminder %d)", a.Title, a.Repeat)
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: a.Body,
		Color:       0xE74C3C,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Dayflow safety window " + a.WindowID},
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("alarm: discord send: %w", err)
	}
	return nil
}
