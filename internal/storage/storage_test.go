package storage

import (
	"context"
	"testing"
	"time"

	"github.com/modguard/modguard/internal/policy"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGetPolicyPersistsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := policy.Default("g1")
	got, err := store.GetPolicy(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if !got.Enabled || got.Thresholds.Warn != 1 {
		t.Fatalf("defaults not applied: %+v", got)
	}

	// A second load must read the persisted row, including later mutations.
	got.Thresholds.Kick = 9
	if err := store.UpsertPolicySettings(ctx, got); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := store.GetPolicy(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get policy again: %v", err)
	}
	if again.Thresholds.Kick != 9 {
		t.Fatalf("expected persisted kick threshold 9, got %d", again.Thresholds.Kick)
	}
}

func TestBlockedTermsAndWhitelist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddBlockedTerm(ctx, "g1", "domain", "Malware-Site.com", policy.SeveritySevere); err != nil {
		t.Fatalf("add blocked term: %v", err)
	}
	if err := store.AddBlockedTerm(ctx, "g1", "word", "scamword", policy.SeverityModerate); err != nil {
		t.Fatalf("add blocked word: %v", err)
	}
	if err := store.AddWhitelistTerm(ctx, "g1", "domain", "good.com"); err != nil {
		t.Fatalf("add whitelist: %v", err)
	}

	p, err := store.GetPolicy(ctx, "g1", policy.Default("g1"))
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if p.BlockedDomains["malware-site.com"] != policy.SeveritySevere {
		t.Fatalf("expected lowercased severe domain, got %+v", p.BlockedDomains)
	}
	if p.BlockedWords["scamword"] != policy.SeverityModerate {
		t.Fatalf("expected moderate word, got %+v", p.BlockedWords)
	}
	if _, ok := p.DomainWhitelist["good.com"]; !ok {
		t.Fatalf("expected whitelisted domain")
	}

	if err := store.RemoveBlockedTerm(ctx, "g1", "word", "scamword"); err != nil {
		t.Fatalf("remove term: %v", err)
	}
	p, _ = store.GetPolicy(ctx, "g1", policy.Default("g1"))
	if _, ok := p.BlockedWords["scamword"]; ok {
		t.Fatalf("word should be removed")
	}
}

func TestWarningLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1_700_000_000_000)

	w, err := store.AddWarning(ctx, Warning{
		GuildID:    "g1",
		UserID:     "u1",
		Reason:     "first",
		DurationMs: 3_600_000,
		CreatedAt:  t0,
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}
	if w.ID == "" {
		t.Fatalf("expected generated id")
	}

	count, err := store.ActiveWarningCount(ctx, "g1", "u1", t0.Add(3_599_999*time.Millisecond))
	if err != nil || count != 1 {
		t.Fatalf("expected active at t0+3599999ms, got %d err=%v", count, err)
	}
	count, err = store.ActiveWarningCount(ctx, "g1", "u1", t0.Add(3_600_001*time.Millisecond))
	if err != nil || count != 0 {
		t.Fatalf("expected expired at t0+3600001ms, got %d err=%v", count, err)
	}

	// Soft removal reduces the active count but keeps the row.
	w2, err := store.AddWarning(ctx, Warning{GuildID: "g1", UserID: "u1", Reason: "second", CreatedAt: t0})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}
	removed, err := store.RemoveWarning(ctx, "g1", w2.ID)
	if err != nil || !removed {
		t.Fatalf("remove warning: removed=%v err=%v", removed, err)
	}
	count, _ = store.ActiveWarningCount(ctx, "g1", "u1", t0)
	if count != 1 {
		t.Fatalf("expected 1 active after removal, got %d", count)
	}
	all, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil || len(all) != 2 {
		t.Fatalf("ledger must keep removed entries, got %d err=%v", len(all), err)
	}
}

func TestRecordViolationCountsAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	_, count, err := store.RecordViolation(ctx, Warning{GuildID: "g1", UserID: "u1", Reason: "r1"}, now)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err=%v", count, err)
	}
	_, count, err = store.RecordViolation(ctx, Warning{GuildID: "g1", UserID: "u1", Reason: "r2"}, now)
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d err=%v", count, err)
	}
}

func TestAuditLogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := AuditLog{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "blocked_word", Details: "word=scamword", CreatedAt: time.Now()}
	if err := store.AddAuditLog(ctx, entry); err != nil {
		t.Fatalf("add audit log: %v", err)
	}
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d err=%v", len(logs), err)
	}
	if logs[0].Event != "blocked_word" {
		t.Fatalf("unexpected event %q", logs[0].Event)
	}
}
