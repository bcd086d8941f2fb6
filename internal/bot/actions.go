package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Actions adapts a discordgo session to the enforce.Actioner interface.
type Actions struct {
	session *discordgo.Session
}

func NewActions(session *discordgo.Session) *Actions {
	return &Actions{session: session}
}

func (a *Actions) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_ = ctx
	return a.session.ChannelMessageDelete(channelID, messageID)
}

func (a *Actions) Reply(ctx context.Context, channelID, userID, text string) error {
	_ = ctx
	_, err := a.session.ChannelMessageSend(channelID, "<@"+userID+"> "+text)
	return err
}

func (a *Actions) Timeout(ctx context.Context, guildID, userID string, until time.Time) error {
	_ = ctx
	return a.session.GuildMemberTimeout(guildID, userID, &until)
}

func (a *Actions) Kick(ctx context.Context, guildID, userID, reason string) error {
	_ = ctx
	return a.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (a *Actions) Ban(ctx context.Context, guildID, userID, reason string) error {
	_ = ctx
	return a.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}
