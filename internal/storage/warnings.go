package storage

import (
	"context"
	"time"

	"github.com/modguard/modguard/internal/policy"

	"github.com/google/uuid"
)

// Warning is one entry in the per-user moderation ledger. Entries are never
// deleted: manual clearing sets Removed, duration expiry only excludes the
// entry from the active count.
type Warning struct {
	ID          string
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	Severity    policy.Severity
	DurationMs  int64
	CreatedAt   time.Time
	Removed     bool
}

// Expired reports whether the warning's duration has elapsed at now.
// A DurationMs of zero means the warning is permanent.
func (w Warning) Expired(now time.Time) bool {
	if w.DurationMs <= 0 {
		return false
	}
	return now.After(w.CreatedAt.Add(time.Duration(w.DurationMs) * time.Millisecond))
}

// Active reports whether the warning counts toward escalation at now.
func (w Warning) Active(now time.Time) bool {
	return !w.Removed && !w.Expired(now)
}

func (s *Store) AddWarning(ctx context.Context, w Warning) (Warning, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Severity == "" {
		w.Severity = policy.SeverityMinor
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (id, guild_id, user_id, moderator_id, reason, severity, duration_ms, created_at, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, w.ID, w.GuildID, w.UserID, w.ModeratorID, w.Reason, string(w.Severity), w.DurationMs, w.CreatedAt.UnixMilli())
	if err != nil {
		return Warning{}, err
	}
	return w, nil
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, reason, severity, duration_ms, created_at, removed
		FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var w Warning
		var severity string
		var created int64
		var removed int
		if err := rows.Scan(&w.ID, &w.GuildID, &w.UserID, &w.ModeratorID, &w.Reason, &severity, &w.DurationMs, &created, &removed); err != nil {
			return nil, err
		}
		w.Severity = policy.Severity(severity)
		w.CreatedAt = time.UnixMilli(created)
		w.Removed = removed == 1
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// ActiveWarningCount counts warnings that are neither removed nor expired at
// now. Expiry is evaluated in SQL so the count and any surrounding write can
// share one transaction.
func (s *Store) ActiveWarningCount(ctx context.Context, guildID, userID string, now time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warnings
		WHERE guild_id = ? AND user_id = ? AND removed = 0
		AND (duration_ms <= 0 OR created_at + duration_ms >= ?)
	`, guildID, userID, now.UnixMilli())
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveWarning soft-removes a warning, immediately reducing the user's
// active count. The row stays in the ledger for audit history.
func (s *Store) RemoveWarning(ctx context.Context, guildID, warningID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE warnings SET removed = 1 WHERE guild_id = ? AND id = ? AND removed = 0
	`, guildID, warningID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RecordViolation appends a warning and returns the resulting active count in
// a single transaction, so two concurrent handlers for the same user cannot
// both observe the pre-violation count.
func (s *Store) RecordViolation(ctx context.Context, w Warning, now time.Time) (Warning, int, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Severity == "" {
		w.Severity = policy.SeverityMinor
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Warning{}, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO warnings (id, guild_id, user_id, moderator_id, reason, severity, duration_ms, created_at, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, w.ID, w.GuildID, w.UserID, w.ModeratorID, w.Reason, string(w.Severity), w.DurationMs, w.CreatedAt.UnixMilli())
	if err != nil {
		return Warning{}, 0, err
	}

	var count int
	row := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warnings
		WHERE guild_id = ? AND user_id = ? AND removed = 0
		AND (duration_ms <= 0 OR created_at + duration_ms >= ?)
	`, w.GuildID, w.UserID, now.UnixMilli())
	if err = row.Scan(&count); err != nil {
		return Warning{}, 0, err
	}
	if err = tx.Commit(); err != nil {
		return Warning{}, 0, err
	}
	return w, count, nil
}
