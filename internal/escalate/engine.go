// Package escalate owns the warning ledger transitions: appending warnings
// for violations and applying the escalation action the active-warning count
// has reached.
package escalate

import (
	"context"
	"fmt"
	"time"

	"github.com/modguard/modguard/internal/audit"
	"github.com/modguard/modguard/internal/enforce"
	"github.com/modguard/modguard/internal/metrics"
	"github.com/modguard/modguard/internal/policy"
	"github.com/modguard/modguard/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Engine struct {
	store   *storage.Store
	actions enforce.Actioner
	audit   *audit.Logger
	clock   Clock
}

func NewEngine(store *storage.Store, actions enforce.Actioner, auditLogger *audit.Logger) *Engine {
	return &Engine{store: store, actions: actions, audit: auditLogger, clock: realClock{}}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// Request describes the escalation-relevant part of a detected violation.
type Request struct {
	GuildID     string
	ChannelID   string
	UserID      string
	ModeratorID string
	Kind        string
	Reason      string
	Severity    policy.Severity

	SendWarning      bool
	ForceEscalation  bool
	ForcedAction     policy.Action
	ActionSuppressed bool
}

// Outcome reports what the engine did for one violation.
type Outcome struct {
	Warning     *storage.Warning
	ActiveCount int
	Action      policy.Action
	State       policy.UserState
}

// Apply records the warning (when auto-warn is on) and applies at most one
// escalation action: the forced action for forced violations, otherwise the
// highest threshold the new active count has reached. Enforcement failures
// are logged and the ledger entry stands.
func (e *Engine) Apply(ctx context.Context, pol policy.Policy, req Request) Outcome {
	now := e.clock.Now()

	if req.ActionSuppressed {
		e.audit.Log(ctx, audit.LevelInfo, req.GuildID, req.UserID, "bypass_admin",
			fmt.Sprintf("kind=%s detection recorded, action suppressed", req.Kind))
		return Outcome{State: policy.StateClean}
	}

	var outcome Outcome
	if req.SendWarning && pol.AutoWarn {
		warning := storage.Warning{
			GuildID:     req.GuildID,
			UserID:      req.UserID,
			ModeratorID: req.ModeratorID,
			Reason:      req.Reason,
			Severity:    req.Severity,
			DurationMs:  pol.WarningTTL.Milliseconds(),
			CreatedAt:   now,
		}
		recorded, count, err := e.store.RecordViolation(ctx, warning, now)
		if err != nil {
			e.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.UserID, "ledger_failed", err.Error())
			count, _ = e.store.ActiveWarningCount(ctx, req.GuildID, req.UserID, now)
			outcome.ActiveCount = count
		} else {
			metrics.Warnings.Inc()
			outcome.Warning = &recorded
			outcome.ActiveCount = count
		}
	} else {
		count, err := e.store.ActiveWarningCount(ctx, req.GuildID, req.UserID, now)
		if err != nil {
			e.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.UserID, "ledger_failed", err.Error())
		}
		outcome.ActiveCount = count
	}

	switch {
	case req.ForceEscalation:
		outcome.Action = req.ForcedAction
		if outcome.Action == "" {
			outcome.Action = policy.ActionTimeout
		}
	case pol.AutoEscalation:
		outcome.Action = pol.ActionFor(outcome.ActiveCount)
	}

	if outcome.Action != "" && outcome.Action != policy.ActionWarn {
		e.enforceAction(ctx, pol, req, outcome.Action, now)
	}
	if outcome.Action != "" {
		metrics.Escalations.WithLabelValues(string(outcome.Action)).Inc()
	}

	outcome.State = pol.StateFor(outcome.ActiveCount)
	return outcome
}

func (e *Engine) enforceAction(ctx context.Context, pol policy.Policy, req Request, action policy.Action, now time.Time) {
	var err error
	switch action {
	case policy.ActionTimeout:
		minutes := pol.TimeoutMinutes
		if minutes <= 0 {
			minutes = 10
		}
		err = e.actions.Timeout(ctx, req.GuildID, req.UserID, now.Add(time.Duration(minutes)*time.Minute))
	case policy.ActionKick:
		err = e.actions.Kick(ctx, req.GuildID, req.UserID, req.Reason)
	case policy.ActionBan:
		err = e.actions.Ban(ctx, req.GuildID, req.UserID, req.Reason)
	default:
		return
	}
	if err != nil {
		metrics.EnforcementFailures.WithLabelValues(string(action)).Inc()
		e.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.UserID, "action_failed",
			fmt.Sprintf("action=%s kind=%s error=%v", action, req.Kind, err))
		return
	}
	e.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.UserID, "escalation",
		fmt.Sprintf("action=%s kind=%s count_relevant=%t", action, req.Kind, !req.ForceEscalation))
}
