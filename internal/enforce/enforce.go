// Package enforce defines the platform-action boundary of the moderation
// pipeline. Every call is best-effort: callers log failures and continue, and
// the warning ledger is never rolled back on enforcement failure.
package enforce

import (
	"context"
	"time"
)

// Actioner is implemented by the bot layer against the chat platform and by
// fakes in tests.
type Actioner interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Reply(ctx context.Context, channelID, userID, text string) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
}

// Noop discards every action. Used in audit-only mode and as a test default.
type Noop struct{}

func (Noop) DeleteMessage(context.Context, string, string) error { return nil }

func (Noop) Reply(context.Context, string, string, string) error { return nil }

func (Noop) Timeout(context.Context, string, string, time.Time) error { return nil }

func (Noop) Kick(context.Context, string, string, string) error { return nil }

func (Noop) Ban(context.Context, string, string, string) error { return nil }
