package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/modguard/modguard/internal/policy"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// GetPolicy loads the per-guild moderation policy. Guilds with no stored
// settings get the defaults persisted and returned.
func (s *Store) GetPolicy(ctx context.Context, guildID string, defaults policy.Policy) (policy.Policy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, auto_warn, auto_escalation, delete_messages,
		max_mentions, timeout_minutes, warning_ttl_ms,
		warn_threshold, timeout_threshold, kick_threshold, ban_threshold
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var enabled, autoWarn, autoEsc, deleteMsgs int
	var ttlMs int64
	err := row.Scan(
		&enabled,
		&autoWarn,
		&autoEsc,
		&deleteMsgs,
		&result.MaxMentions,
		&result.TimeoutMinutes,
		&ttlMs,
		&result.Thresholds.Warn,
		&result.Thresholds.Timeout,
		&result.Thresholds.Kick,
		&result.Thresholds.Ban,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if upsertErr := s.UpsertPolicySettings(ctx, result); upsertErr != nil {
				return policy.Policy{}, upsertErr
			}
			return s.loadLists(ctx, result)
		}
		return policy.Policy{}, err
	}
	result.Enabled = enabled == 1
	result.AutoWarn = autoWarn == 1
	result.AutoEscalation = autoEsc == 1
	result.DeleteMessages = deleteMsgs == 1
	result.WarningTTL = time.Duration(ttlMs) * time.Millisecond

	return s.loadLists(ctx, result)
}

// UpsertPolicySettings persists the scalar policy fields. Term lists are
// mutated individually through the term operations.
func (s *Store) UpsertPolicySettings(ctx context.Context, p policy.Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, enabled, auto_warn, auto_escalation, delete_messages,
			max_mentions, timeout_minutes, warning_ttl_ms,
			warn_threshold, timeout_threshold, kick_threshold, ban_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			auto_warn = excluded.auto_warn,
			auto_escalation = excluded.auto_escalation,
			delete_messages = excluded.delete_messages,
			max_mentions = excluded.max_mentions,
			timeout_minutes = excluded.timeout_minutes,
			warning_ttl_ms = excluded.warning_ttl_ms,
			warn_threshold = excluded.warn_threshold,
			timeout_threshold = excluded.timeout_threshold,
			kick_threshold = excluded.kick_threshold,
			ban_threshold = excluded.ban_threshold
	`,
		p.GuildID,
		boolToInt(p.Enabled),
		boolToInt(p.AutoWarn),
		boolToInt(p.AutoEscalation),
		boolToInt(p.DeleteMessages),
		p.MaxMentions,
		p.TimeoutMinutes,
		p.WarningTTL.Milliseconds(),
		p.Thresholds.Warn,
		p.Thresholds.Timeout,
		p.Thresholds.Kick,
		p.Thresholds.Ban,
	)
	return err
}

func (s *Store) loadLists(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	p.BlockedWords = make(map[string]policy.Severity)
	p.BlockedDomains = make(map[string]policy.Severity)
	p.WordWhitelist = make(map[string]struct{})
	p.DomainWhitelist = make(map[string]struct{})
	p.LinkChannels = make(map[string]struct{})

	rows, err := s.db.QueryContext(ctx, `SELECT kind, value, severity FROM blocked_terms WHERE guild_id = ?`, p.GuildID)
	if err != nil {
		return policy.Policy{}, err
	}
	for rows.Next() {
		var kind, value, severity string
		if err := rows.Scan(&kind, &value, &severity); err != nil {
			rows.Close()
			return policy.Policy{}, err
		}
		switch kind {
		case "word":
			p.BlockedWords[value] = policy.Severity(severity)
		case "domain":
			p.BlockedDomains[value] = policy.Severity(severity)
		}
	}
	if err := closeRows(rows); err != nil {
		return policy.Policy{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT kind, value FROM whitelist_terms WHERE guild_id = ?`, p.GuildID)
	if err != nil {
		return policy.Policy{}, err
	}
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			rows.Close()
			return policy.Policy{}, err
		}
		switch kind {
		case "word":
			p.WordWhitelist[value] = struct{}{}
		case "domain":
			p.DomainWhitelist[value] = struct{}{}
		}
	}
	if err := closeRows(rows); err != nil {
		return policy.Policy{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT channel_id FROM link_channels WHERE guild_id = ?`, p.GuildID)
	if err != nil {
		return policy.Policy{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var channel string
		if err := rows.Scan(&channel); err != nil {
			return policy.Policy{}, err
		}
		p.LinkChannels[channel] = struct{}{}
	}
	return p, rows.Err()
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	return err
}

// SecurityLogChannel returns the per-guild audit channel, empty when unset.
func (s *Store) SecurityLogChannel(ctx context.Context, guildID string) string {
	row := s.db.QueryRowContext(ctx, `SELECT security_log_channel FROM guild_settings WHERE guild_id = ?`, guildID)
	var channel string
	if err := row.Scan(&channel); err != nil {
		return ""
	}
	return channel
}

func (s *Store) SetSecurityLogChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, security_log_channel) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET security_log_channel = excluded.security_log_channel
	`, guildID, channelID)
	return err
}

func (s *Store) AddBlockedTerm(ctx context.Context, guildID, kind, value string, severity policy.Severity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_terms (guild_id, kind, value, severity) VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, kind, value) DO UPDATE SET severity = excluded.severity
	`, guildID, kind, strings.ToLower(value), string(severity))
	return err
}

func (s *Store) RemoveBlockedTerm(ctx context.Context, guildID, kind, value string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blocked_terms WHERE guild_id = ? AND kind = ? AND value = ?`, guildID, kind, strings.ToLower(value))
	return err
}

func (s *Store) AddWhitelistTerm(ctx context.Context, guildID, kind, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO whitelist_terms (guild_id, kind, value) VALUES (?, ?, ?)`, guildID, kind, strings.ToLower(value))
	return err
}

func (s *Store) RemoveWhitelistTerm(ctx context.Context, guildID, kind, value string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM whitelist_terms WHERE guild_id = ? AND kind = ? AND value = ?`, guildID, kind, strings.ToLower(value))
	return err
}

func (s *Store) AddLinkChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO link_channels (guild_id, channel_id) VALUES (?, ?)`, guildID, channelID)
	return err
}

func (s *Store) RemoveLinkChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM link_channels WHERE guild_id = ? AND channel_id = ?`, guildID, channelID)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
