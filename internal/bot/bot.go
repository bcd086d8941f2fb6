package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/modguard/modguard/internal/analytics"
	"github.com/modguard/modguard/internal/audit"
	"github.com/modguard/modguard/internal/config"
	"github.com/modguard/modguard/internal/escalate"
	"github.com/modguard/modguard/internal/pipeline"
	"github.com/modguard/modguard/internal/storage"
	"github.com/modguard/modguard/internal/window"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	pipeline  *pipeline.Pipeline
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
	}

	actions := NewActions(session)
	escalator := escalate.NewEngine(store, actions, auditLogger)
	tracker := window.NewTracker(cfg.TrackerConfig())
	b.pipeline = pipeline.New(store, cfg.PolicyDefaults(), tracker, escalator, actions, auditLogger, logger)

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	b.pipeline.Process(ctx, pipeline.Message{
		GuildID:      msg.GuildID,
		ChannelID:    msg.ChannelID,
		MessageID:    msg.ID,
		UserID:       msg.Author.ID,
		Content:      msg.Content,
		MentionCount: len(msg.Mentions),
		AccountAge:   b.accountAge(msg.Author.ID),
		IsAdmin:      b.isAdmin(msg.GuildID, msg.Author.ID),
	})
}

// accountAge derives the account creation time from the snowflake. An
// unparseable ID is treated as an established account.
func (b *Bot) accountAge(userID string) time.Duration {
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return 365 * 24 * time.Hour
	}
	return time.Since(created)
}

func (b *Bot) isAdmin(guildID, userID string) bool {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = b.session.Guild(guildID)
	}
	if guild == nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	return b.memberHasAdmin(guild, b.memberForUser(guildID, userID))
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) memberHasAdmin(guild *discordgo.Guild, member *discordgo.Member) bool {
	if guild == nil || member == nil {
		return false
	}
	perms := int64(0)
	for _, role := range guild.Roles {
		if role.ID == guild.ID {
			perms |= role.Permissions
			break
		}
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	channelID := b.store.SecurityLogChannel(ctx, entry.GuildID)
	if channelID == "" {
		channelID = b.cfg.DefaultSecurityLogChannel
	}
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Moderation event",
		Description: entry.Details,
		Color:       levelColor(entry.Level),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Event", Value: entry.Event, Inline: true},
			{Name: "Level", Value: entry.Level, Inline: true},
			{Name: "User", Value: "<@" + entry.UserID + ">", Inline: true},
		},
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("audit notification failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func levelColor(level string) int {
	switch level {
	case audit.LevelCrit:
		return 0xEF4444
	case audit.LevelWarn:
		return 0xF59E0B
	default:
		return 0x3B82F6
	}
}

func formatReport(report analytics.Report) string {
	return fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d",
		report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit])
}
