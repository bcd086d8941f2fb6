package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/modguard/modguard/internal/audit"
	"github.com/modguard/modguard/internal/escalate"
	"github.com/modguard/modguard/internal/policy"
	"github.com/modguard/modguard/internal/storage"
	"github.com/modguard/modguard/internal/window"

	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

type recordingActions struct {
	deletes  []string
	replies  []string
	timeouts int
	kicks    int
	bans     int
}

func (r *recordingActions) DeleteMessage(_ context.Context, channelID, messageID string) error {
	r.deletes = append(r.deletes, channelID+"/"+messageID)
	return nil
}

func (r *recordingActions) Reply(_ context.Context, channelID, userID, text string) error {
	r.replies = append(r.replies, "<@"+userID+"> "+text)
	return nil
}

func (r *recordingActions) Timeout(context.Context, string, string, time.Time) error {
	r.timeouts++
	return nil
}

func (r *recordingActions) Kick(context.Context, string, string, string) error {
	r.kicks++
	return nil
}

func (r *recordingActions) Ban(context.Context, string, string, string) error {
	r.bans++
	return nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *storage.Store, *recordingActions) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	actions := &recordingActions{}
	auditLogger := audit.NewLogger(store, zap.NewNop())
	clock := fakeClock{now: time.UnixMilli(1_700_000_000_000)}

	escalator := escalate.NewEngine(store, actions, auditLogger)
	escalator.WithClock(clock)

	p := New(store, policy.Default, window.NewTracker(window.DefaultConfig()), escalator, actions, auditLogger, zap.NewNop())
	p.WithClock(clock)
	return p, store, actions
}

func TestProcessBlockedDomainEndToEnd(t *testing.T) {
	p, store, actions := newTestPipeline(t)
	ctx := context.Background()

	if err := store.AddBlockedTerm(ctx, "g1", "domain", "malware-site.com", policy.SeveritySevere); err != nil {
		t.Fatalf("add blocked domain: %v", err)
	}

	msg := Message{
		GuildID:    "g1",
		ChannelID:  "general",
		MessageID:  "m1",
		UserID:     "u1",
		Content:    "check out malware-site.com",
		AccountAge: 90 * 24 * time.Hour,
	}
	v := p.Process(ctx, msg)
	if v == nil || v.Kind != KindBlockedDomain {
		t.Fatalf("expected blocked_domain violation, got %+v", v)
	}

	if len(actions.deletes) != 1 {
		t.Fatalf("expected 1 delete, got %d", len(actions.deletes))
	}
	if len(actions.replies) != 1 {
		t.Fatalf("expected exactly one explanatory reply, got %d", len(actions.replies))
	}

	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil || len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d err=%v", len(warnings), err)
	}
	if warnings[0].Severity != policy.SeveritySevere {
		t.Fatalf("warning severity must come from the domain bucket, got %s", warnings[0].Severity)
	}
}

func TestProcessWhitelistedDomainIsClean(t *testing.T) {
	p, store, actions := newTestPipeline(t)
	ctx := context.Background()

	_ = store.AddBlockedTerm(ctx, "g1", "domain", "both.com", policy.SeveritySevere)
	_ = store.AddWhitelistTerm(ctx, "g1", "domain", "both.com")

	v := p.Process(ctx, Message{
		GuildID: "g1", ChannelID: "general", MessageID: "m1", UserID: "u1",
		Content: "see https://both.com/page", AccountAge: 90 * 24 * time.Hour,
	})
	if v != nil {
		t.Fatalf("whitelist must win over the block list: %+v", v)
	}
	if len(actions.deletes) != 0 || len(actions.replies) != 0 {
		t.Fatalf("no actions expected for clean message")
	}
}

func TestProcessDisabledPolicySkipsEverything(t *testing.T) {
	p, store, actions := newTestPipeline(t)
	ctx := context.Background()

	pol := policy.Default("g1")
	pol.Enabled = false
	if err := store.UpsertPolicySettings(ctx, pol); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = store.AddBlockedTerm(ctx, "g1", "word", "scamword", policy.SeverityMinor)

	v := p.Process(ctx, Message{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1",
		Content: "scamword here", AccountAge: 90 * 24 * time.Hour,
	})
	if v != nil || len(actions.deletes) != 0 {
		t.Fatalf("disabled policy must skip the pipeline: %+v", v)
	}
}

func TestProcessAdminDetectionWithoutAction(t *testing.T) {
	p, store, actions := newTestPipeline(t)
	ctx := context.Background()
	_ = store.AddBlockedTerm(ctx, "g1", "word", "scamword", policy.SeverityMinor)

	v := p.Process(ctx, Message{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "admin",
		Content: "scamword here", AccountAge: 90 * 24 * time.Hour, IsAdmin: true,
	})
	if v == nil || !v.ActionSuppressed {
		t.Fatalf("expected suppressed detection: %+v", v)
	}
	if len(actions.deletes) != 0 || len(actions.replies) != 0 || actions.timeouts != 0 {
		t.Fatalf("no enforcement expected for admins")
	}
	warnings, _ := store.ListWarnings(ctx, "g1", "admin")
	if len(warnings) != 0 {
		t.Fatalf("no warning expected for suppressed detections, got %d", len(warnings))
	}
}

func TestProcessRapidPostingForcesTimeout(t *testing.T) {
	p, _, actions := newTestPipeline(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	var v *Violation
	for i := 0; i < 5; i++ {
		p.WithClock(fakeClock{now: base.Add(time.Duration(i) * time.Second)})
		v = p.Process(ctx, Message{
			GuildID: "g1", ChannelID: "c1", MessageID: "m", UserID: "u1",
			Content: "spam message", AccountAge: 90 * 24 * time.Hour,
		})
	}
	if v == nil || v.Kind != KindRapidPosting {
		t.Fatalf("expected rapid_posting on the fifth burst message, got %+v", v)
	}
	if actions.timeouts == 0 {
		t.Fatalf("rapid posting forces a timeout")
	}
}

func TestProcessEscalatesToKickAtThreshold(t *testing.T) {
	p, store, actions := newTestPipeline(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	pol := policy.Default("g1")
	pol.Thresholds = policy.Thresholds{Warn: 1, Timeout: 2, Kick: 3, Ban: 10}
	if err := store.UpsertPolicySettings(ctx, pol); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = store.AddBlockedTerm(ctx, "g1", "word", "scamword", policy.SeverityMinor)

	// Two prior active warnings: the next violation lands exactly on kick.
	for i := 0; i < 2; i++ {
		if _, err := store.AddWarning(ctx, storage.Warning{GuildID: "g1", UserID: "u1", Reason: "seed", CreatedAt: now}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	v := p.Process(ctx, Message{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1",
		Content: "scamword again", AccountAge: 90 * 24 * time.Hour,
	})
	if v == nil || v.Kind != KindBlockedWord {
		t.Fatalf("expected blocked_word, got %+v", v)
	}
	if actions.kicks != 1 || actions.timeouts != 0 {
		t.Fatalf("highest reached threshold is kick, got kicks=%d timeouts=%d", actions.kicks, actions.timeouts)
	}
}
