// Package pipeline evaluates inbound messages against the moderation policy.
// Detection runs as an ordered list of pure detectors; the dispatcher stops
// at the first match and hands the violation to the escalation engine.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/modguard/modguard/internal/audit"
	"github.com/modguard/modguard/internal/detect"
	"github.com/modguard/modguard/internal/enforce"
	"github.com/modguard/modguard/internal/escalate"
	"github.com/modguard/modguard/internal/metrics"
	"github.com/modguard/modguard/internal/policy"
	"github.com/modguard/modguard/internal/storage"
	"github.com/modguard/modguard/internal/window"

	"go.uber.org/zap"
)

// Message is the platform-independent view of one inbound message.
type Message struct {
	GuildID      string
	ChannelID    string
	MessageID    string
	UserID       string
	Content      string
	MentionCount int
	AccountAge   time.Duration
	IsAdmin      bool
}

// Violation is one detected policy breach mapped to an action bundle.
type Violation struct {
	Kind             string
	Reason           string
	Severity         policy.Severity
	DeleteMessage    bool
	SendWarning      bool
	ForceEscalation  bool
	ForcedAction     policy.Action
	ActionSuppressed bool
	UserNotice       string
}

// Signals are the rate-window detector results for one message. The windows
// are updated before the cascade runs, so all three are reported even when an
// earlier detector wins.
type Signals struct {
	LinkSpam         bool
	RapidPosting     bool
	CrossChannelSpam bool
}

// Evaluation bundles everything the detectors may inspect.
type Evaluation struct {
	Msg     Message
	Class   detect.Classification
	Policy  policy.Policy
	Hosts   []string
	Signals Signals
}

// Detector inspects one evaluation and returns a violation or nil. Detectors
// are pure: all state lives in the evaluation.
type Detector interface {
	Name() string
	Detect(eval *Evaluation) *Violation
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Pipeline struct {
	store     *storage.Store
	defaults  func(guildID string) policy.Policy
	tracker   *window.Tracker
	escalator *escalate.Engine
	actions   enforce.Actioner
	audit     *audit.Logger
	logger    *zap.Logger
	detectors []Detector
	clock     Clock
}

func New(store *storage.Store, defaults func(string) policy.Policy, tracker *window.Tracker, escalator *escalate.Engine, actions enforce.Actioner, auditLogger *audit.Logger, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		defaults:  defaults,
		tracker:   tracker,
		escalator: escalator,
		actions:   actions,
		audit:     auditLogger,
		logger:    logger,
		detectors: Detectors(),
		clock:     realClock{},
	}
}

func (p *Pipeline) WithClock(clock Clock) {
	p.clock = clock
}

// Defaults returns the fallback policy used when a guild has no stored row.
func (p *Pipeline) Defaults(guildID string) policy.Policy {
	return p.defaults(guildID)
}

// Process classifies the message, updates the rate windows, runs the detector
// cascade, and applies the resulting action bundle. It returns the violation
// that matched, or nil.
func (p *Pipeline) Process(ctx context.Context, msg Message) *Violation {
	now := p.clock.Now()

	pol, err := p.store.GetPolicy(ctx, msg.GuildID, p.defaults(msg.GuildID))
	if err != nil {
		// Corrupt or unreadable settings fall back to in-memory defaults for
		// this invocation; the stored row is not repaired here.
		p.logger.Warn("policy load failed, using defaults", zap.String("guild_id", msg.GuildID), zap.Error(err))
		pol = p.defaults(msg.GuildID)
	}
	if !pol.Enabled {
		return nil
	}

	class := detect.Classify(detect.Input{
		Content:      msg.Content,
		MentionCount: msg.MentionCount,
		AccountAge:   msg.AccountAge,
	})

	hosts := make([]string, 0, len(class.URLs))
	for _, raw := range class.URLs {
		if host, ok := detect.NormalizeHost(raw); ok {
			hosts = append(hosts, host)
		}
	}

	eval := &Evaluation{Msg: msg, Class: class, Policy: pol, Hosts: hosts}
	eval.Signals = p.updateWindows(msg, class, now)

	violation := p.dispatch(eval)
	if violation == nil {
		return nil
	}

	metrics.Detections.WithLabelValues(violation.Kind).Inc()
	p.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.UserID, violation.Kind, violation.Reason)

	if violation.ActionSuppressed {
		p.escalator.Apply(ctx, pol, p.request(msg, violation))
		return violation
	}

	if violation.DeleteMessage && pol.DeleteMessages {
		if err := p.actions.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
			metrics.EnforcementFailures.WithLabelValues("delete").Inc()
			p.logger.Warn("message delete failed",
				zap.String("channel_id", msg.ChannelID),
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
		}
	}

	// Exactly one explanatory reply per violation, mentioning only the violator.
	notice := violation.UserNotice
	if notice == "" {
		notice = "your message was removed for violating server rules"
	}
	if err := p.actions.Reply(ctx, msg.ChannelID, msg.UserID, notice); err != nil {
		p.logger.Warn("violation reply failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}

	p.escalator.Apply(ctx, pol, p.request(msg, violation))
	return violation
}

func (p *Pipeline) dispatch(eval *Evaluation) *Violation {
	for _, detector := range p.detectors {
		if violation := detector.Detect(eval); violation != nil {
			return violation
		}
	}
	return nil
}

func (p *Pipeline) request(msg Message, v *Violation) escalate.Request {
	return escalate.Request{
		GuildID:          msg.GuildID,
		ChannelID:        msg.ChannelID,
		UserID:           msg.UserID,
		Kind:             v.Kind,
		Reason:           v.Reason,
		Severity:         v.Severity,
		SendWarning:      v.SendWarning,
		ForceEscalation:  v.ForceEscalation,
		ForcedAction:     v.ForcedAction,
		ActionSuppressed: v.ActionSuppressed,
	}
}

func (p *Pipeline) updateWindows(msg Message, class detect.Classification, now time.Time) Signals {
	var signals Signals
	if len(class.URLs) > 0 {
		for range class.URLs {
			p.tracker.RegisterPost(msg.UserID, now)
		}
		signals.LinkSpam = p.tracker.IsSpamming(msg.UserID, msg.AccountAge, now)
	}
	signals.RapidPosting = p.tracker.IsRapidPosting(msg.UserID, now)
	if msg.Content != "" {
		signals.CrossChannelSpam = p.tracker.IsCrossChannelSpam(msg.UserID, contentHash(msg.Content), msg.ChannelID, now)
	}
	return signals
}

func contentHash(content string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return strconv.FormatUint(h.Sum64(), 16)
}

func reasonf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
