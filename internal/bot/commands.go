package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	var adminOnly int64 = discordgo.PermissionAdministrator

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "status",
			Description: "Show moderation status for this server",
		},
		{
			Name:        "warnings",
			Description: "List a user's warnings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to inspect",
					Required:    true,
				},
			},
		},
		{
			Name:                     "warn",
			Description:              "Issue a manual warning",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to warn",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the warning is issued",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "severity",
					Description: "Severity bucket",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "minor", Value: "minor"},
						{Name: "moderate", Value: "moderate"},
						{Name: "severe", Value: "severe"},
					},
				},
			},
		},
		{
			Name:                     "unwarn",
			Description:              "Remove a warning by id",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "Warning id from /warnings",
					Required:    true,
				},
			},
		},
		{
			Name:                     "policy",
			Description:              "View or toggle moderation gates",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "gate",
					Description: "Gate to toggle, omit to view",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "enabled", Value: "enabled"},
						{Name: "auto_warn", Value: "auto_warn"},
						{Name: "auto_escalation", Value: "auto_escalation"},
						{Name: "delete_messages", Value: "delete_messages"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "value",
					Description: "New gate value",
				},
			},
		},
		{
			Name:                     "blocklist",
			Description:              "Manage blocked words and domains",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add or remove",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "word or domain",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "word", Value: "word"},
						{Name: "domain", Value: "domain"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Term to block",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "severity",
					Description: "Severity bucket for add",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "minor", Value: "minor"},
						{Name: "moderate", Value: "moderate"},
						{Name: "severe", Value: "severe"},
					},
				},
			},
		},
		{
			Name:                     "allowlist",
			Description:              "Manage whitelisted words and domains",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add or remove",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "word or domain",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "word", Value: "word"},
						{Name: "domain", Value: "domain"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Term to whitelist",
					Required:    true,
				},
			},
		},
		{
			Name:                     "linkchannel",
			Description:              "Manage the link allow-list channels",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add or remove",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel where links are allowed",
					Required:    true,
				},
			},
		},
		{
			Name:                     "logs",
			Description:              "Set the security log channel",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for moderation notifications",
					Required:    true,
				},
			},
		},
		{
			Name:        "report",
			Description: "Summarize moderation activity",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "Lookback window, default 24",
				},
			},
		},
	}

	for _, command := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", command); err != nil {
			return err
		}
	}
	return nil
}
