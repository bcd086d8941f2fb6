package config

import (
	"testing"
	"time"
)

func TestLoadAppliesPresetAndEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("RULE_PRESET", "strict")
	t.Setenv("MAX_LINKS", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Moderation.Thresholds.Kick != 4 {
		t.Fatalf("strict preset kick threshold = %d, want 4", cfg.Moderation.Thresholds.Kick)
	}
	// Presets run after env resolution and own the window limits.
	if cfg.Windows.MaxLinks != 2 {
		t.Fatalf("strict preset max links = %d, want 2", cfg.Windows.MaxLinks)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without DISCORD_TOKEN")
	}
}

func TestPolicyDefaultsCarryModerationKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Moderation.MaxMentions = 4
	cfg.Moderation.WarningTTLDays = 7

	p := cfg.PolicyDefaults()("g1")
	if p.GuildID != "g1" {
		t.Fatalf("guild id = %q", p.GuildID)
	}
	if p.MaxMentions != 4 {
		t.Fatalf("max mentions = %d, want 4", p.MaxMentions)
	}
	if p.WarningTTL != 7*24*time.Hour {
		t.Fatalf("warning ttl = %s", p.WarningTTL)
	}
}

func TestTrackerConfigIgnoresZeroKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows.DupWindowSeconds = 0
	cfg.Windows.MaxLinks = 4

	wc := cfg.TrackerConfig()
	if wc.DupWindow != 5*time.Minute {
		t.Fatalf("zero dup window must keep the default, got %s", wc.DupWindow)
	}
	if wc.MaxLinks != 4 {
		t.Fatalf("max links = %d, want 4", wc.MaxLinks)
	}
}
