package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modguard/modguard/internal/audit"
	"github.com/modguard/modguard/internal/policy"
	"github.com/modguard/modguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorAction = 0xF59E0B
	colorError  = 0xEF4444
	colorInfo   = 0x3B82F6
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Moderation", "This command only works inside a server.", colorError, nil), true)
		return
	}

	switch data.Name {
	case "status":
		b.handleStatus(ctx, session, interaction)
	case "warnings":
		b.handleWarnings(ctx, session, interaction, data.Options)
	case "warn":
		b.handleWarn(ctx, session, interaction, data.Options)
	case "unwarn":
		b.handleUnwarn(ctx, session, interaction, data.Options)
	case "policy":
		b.handlePolicy(ctx, session, interaction, data.Options)
	case "blocklist":
		b.handleTermList(ctx, session, interaction, data.Options, false)
	case "allowlist":
		b.handleTermList(ctx, session, interaction, data.Options, true)
	case "linkchannel":
		b.handleLinkChannel(ctx, session, interaction, data.Options)
	case "logs":
		b.handleLogs(ctx, session, interaction, data.Options)
	case "report":
		b.handleReport(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleStatus(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	pol, err := b.store.GetPolicy(ctx, interaction.GuildID, b.pipeline.Defaults(interaction.GuildID))
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Status", "Could not load guild settings.", colorError, nil), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Enabled", Value: fmt.Sprintf("%t", pol.Enabled), Inline: true},
		{Name: "Auto warn", Value: fmt.Sprintf("%t", pol.AutoWarn), Inline: true},
		{Name: "Auto escalation", Value: fmt.Sprintf("%t", pol.AutoEscalation), Inline: true},
		{Name: "Delete messages", Value: fmt.Sprintf("%t", pol.DeleteMessages), Inline: true},
		{Name: "Thresholds", Value: fmt.Sprintf("warn %d / timeout %d / kick %d / ban %d",
			pol.Thresholds.Warn, pol.Thresholds.Timeout, pol.Thresholds.Kick, pol.Thresholds.Ban), Inline: false},
		{Name: "Blocked terms", Value: fmt.Sprintf("%d words, %d domains",
			len(pol.BlockedWords), len(pol.BlockedDomains)), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Moderation status", "", colorInfo, fields), true)
}

func (b *Bot) handleWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	user := optionUser(session, options, "user")
	if user == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings", "User option is required.", colorError, nil), true)
		return
	}
	warnings, err := b.store.ListWarnings(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings", "Could not load warnings.", colorError, nil), true)
		return
	}
	if len(warnings) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings", "No warnings for <@"+user.ID+">.", colorInfo, nil), true)
		return
	}

	now := time.Now()
	lines := make([]string, 0, len(warnings))
	active := 0
	for _, w := range warnings {
		state := "active"
		switch {
		case w.Removed:
			state = "removed"
		case w.Expired(now):
			state = "expired"
		default:
			active++
		}
		lines = append(lines, fmt.Sprintf("`%s` [%s/%s] %s", w.ID, w.Severity, state, w.Reason))
	}
	desc := fmt.Sprintf("<@%s> has %d active of %d total.\n%s", user.ID, active, len(warnings), strings.Join(lines, "\n"))
	b.respondEmbed(session, interaction, b.commandEmbed("Warnings", desc, colorInfo, nil), true)
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	user := optionUser(session, options, "user")
	reason := optionString(options, "reason")
	if user == nil || reason == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Warn", "User and reason are required.", colorError, nil), true)
		return
	}
	severity := policy.Severity(optionString(options, "severity"))
	if severity == "" {
		severity = policy.SeverityMinor
	}

	pol, err := b.store.GetPolicy(ctx, interaction.GuildID, b.pipeline.Defaults(interaction.GuildID))
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Warn", "Could not load guild settings.", colorError, nil), true)
		return
	}

	moderatorID := ""
	if interaction.Member != nil && interaction.Member.User != nil {
		moderatorID = interaction.Member.User.ID
	}
	warning, count, err := b.store.RecordViolation(ctx, storage.Warning{
		GuildID:     interaction.GuildID,
		UserID:      user.ID,
		ModeratorID: moderatorID,
		Reason:      reason,
		Severity:    severity,
		DurationMs:  pol.WarningTTL.Milliseconds(),
		CreatedAt:   time.Now(),
	}, time.Now())
	if err != nil {
		b.logger.Warn("manual warning failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Warn", "Could not record the warning.", colorError, nil), true)
		return
	}

	b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, user.ID, "manual_warning",
		fmt.Sprintf("id=%s severity=%s moderator=%s", warning.ID, severity, moderatorID))
	desc := fmt.Sprintf("Warned <@%s> (`%s`). Active warnings: %d.", user.ID, warning.ID, count)
	b.respondEmbed(session, interaction, b.commandEmbed("Warn", desc, colorAction, nil), true)
}

func (b *Bot) handleUnwarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	id := optionString(options, "id")
	if id == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Unwarn", "Warning id is required.", colorError, nil), true)
		return
	}
	removed, err := b.store.RemoveWarning(ctx, interaction.GuildID, id)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Unwarn", "Could not remove the warning.", colorError, nil), true)
		return
	}
	if !removed {
		b.respondEmbed(session, interaction, b.commandEmbed("Unwarn", "No active warning with that id.", colorError, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, "", "warning_removed", "id="+id)
	b.respondEmbed(session, interaction, b.commandEmbed("Unwarn", "Warning `"+id+"` removed.", colorAction, nil), true)
}

func (b *Bot) handlePolicy(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	pol, err := b.store.GetPolicy(ctx, interaction.GuildID, b.pipeline.Defaults(interaction.GuildID))
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Policy", "Could not load guild settings.", colorError, nil), true)
		return
	}

	gate := optionString(options, "gate")
	if gate == "" {
		fields := []*discordgo.MessageEmbedField{
			{Name: "enabled", Value: fmt.Sprintf("%t", pol.Enabled), Inline: true},
			{Name: "auto_warn", Value: fmt.Sprintf("%t", pol.AutoWarn), Inline: true},
			{Name: "auto_escalation", Value: fmt.Sprintf("%t", pol.AutoEscalation), Inline: true},
			{Name: "delete_messages", Value: fmt.Sprintf("%t", pol.DeleteMessages), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Policy", "Current gates", colorInfo, fields), true)
		return
	}

	value, ok := optionBool(options, "value")
	if !ok {
		b.respondEmbed(session, interaction, b.commandEmbed("Policy", "A value is required to toggle a gate.", colorError, nil), true)
		return
	}

	switch gate {
	case "enabled":
		pol.Enabled = value
	case "auto_warn":
		pol.AutoWarn = value
	case "auto_escalation":
		pol.AutoEscalation = value
	case "delete_messages":
		pol.DeleteMessages = value
	default:
		b.respondEmbed(session, interaction, b.commandEmbed("Policy", "Unknown gate.", colorError, nil), true)
		return
	}

	if err := b.store.UpsertPolicySettings(ctx, pol); err != nil {
		b.logger.Warn("policy update failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Policy", "Could not save settings.", colorError, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, "", "policy_updated", fmt.Sprintf("%s=%t", gate, value))
	b.respondEmbed(session, interaction, b.commandEmbed("Policy", fmt.Sprintf("Set %s to %t.", gate, value), colorAction, nil), true)
}

func (b *Bot) handleTermList(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, whitelist bool) {
	action := optionString(options, "action")
	kind := optionString(options, "kind")
	value := strings.TrimSpace(optionString(options, "value"))
	if action == "" || kind == "" || value == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Terms", "Action, kind, and value are required.", colorError, nil), true)
		return
	}

	var err error
	var event string
	switch {
	case whitelist && action == "add":
		err = b.store.AddWhitelistTerm(ctx, interaction.GuildID, kind, value)
		event = "whitelist_added"
	case whitelist:
		err = b.store.RemoveWhitelistTerm(ctx, interaction.GuildID, kind, value)
		event = "whitelist_removed"
	case action == "add":
		severity := policy.Severity(optionString(options, "severity"))
		if severity == "" {
			severity = policy.SeverityMinor
		}
		err = b.store.AddBlockedTerm(ctx, interaction.GuildID, kind, value, severity)
		event = "blocklist_added"
	default:
		err = b.store.RemoveBlockedTerm(ctx, interaction.GuildID, kind, value)
		event = "blocklist_removed"
	}
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Terms", "Could not update the list.", colorError, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, "", event, kind+"="+value)
	b.respondEmbed(session, interaction, b.commandEmbed("Terms", fmt.Sprintf("%s %s `%s`.", actionVerb(action), kind, value), colorAction, nil), true)
}

func (b *Bot) handleLinkChannel(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	action := optionString(options, "action")
	channel := optionChannel(session, options, "channel")
	if action == "" || channel == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Link channels", "Action and channel are required.", colorError, nil), true)
		return
	}

	var err error
	if action == "add" {
		err = b.store.AddLinkChannel(ctx, interaction.GuildID, channel.ID)
	} else {
		err = b.store.RemoveLinkChannel(ctx, interaction.GuildID, channel.ID)
	}
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Link channels", "Could not update the channel list.", colorError, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, "", "link_channels_updated", action+"="+channel.ID)
	b.respondEmbed(session, interaction, b.commandEmbed("Link channels", fmt.Sprintf("%s <#%s>.", actionVerb(action), channel.ID), colorAction, nil), true)
}

func actionVerb(action string) string {
	if action == "remove" {
		return "Removed"
	}
	return "Added"
}

func (b *Bot) handleLogs(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	channel := optionChannel(session, options, "channel")
	if channel == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Logs", "Channel is required.", colorError, nil), true)
		return
	}
	if err := b.store.SetSecurityLogChannel(ctx, interaction.GuildID, channel.ID); err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Logs", "Could not save the log channel.", colorError, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Logs", "Notifications go to <#"+channel.ID+">.", colorAction, nil), true)
}

func (b *Bot) handleReport(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	hours := optionInt(options, "hours")
	if hours <= 0 {
		hours = 24
	}
	report, err := b.analytics.Report(ctx, interaction.GuildID, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Report", "Could not build the report.", colorError, nil), true)
		return
	}

	lines := []string{formatReport(report)}
	for kind, count := range report.ByKind {
		lines = append(lines, fmt.Sprintf("%s: %d", kind, count))
	}
	b.respondEmbed(session, interaction, b.commandEmbed(
		fmt.Sprintf("Moderation report (last %dh)", hours),
		strings.Join(lines, "\n"), colorInfo, nil), true)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionString {
			return option.StringValue()
		}
	}
	return ""
}

func optionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionInteger {
			return int(option.IntValue())
		}
	}
	return 0
}

func optionBool(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (bool, bool) {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionBoolean {
			return option.BoolValue(), true
		}
	}
	return false, false
}

func optionUser(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.User {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionUser {
			return option.UserValue(session)
		}
	}
	return nil
}

func optionChannel(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.Channel {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionChannel {
			return option.ChannelValue(session)
		}
	}
	return nil
}
