package policy

import "testing"

func TestSeverityOfDefault(t *testing.T) {
	buckets := map[string]Severity{"malware-site.com": SeveritySevere}
	if sev := SeverityOf("malware-site.com", buckets); sev != SeveritySevere {
		t.Fatalf("expected severe, got %s", sev)
	}
	if sev := SeverityOf("unbucketed.com", buckets); sev != SeverityMinor {
		t.Fatalf("expected minor default, got %s", sev)
	}
	if sev := SeverityOf("odd.com", map[string]Severity{"odd.com": "critical"}); sev != SeverityMinor {
		t.Fatalf("expected minor for unknown bucket, got %s", sev)
	}
}

func TestMatchBlockedWordWhitelistWins(t *testing.T) {
	p := Default("g1")
	p.BlockedWords["scamword"] = SeverityModerate
	p.WordWhitelist["scamword"] = struct{}{}
	if _, hit := p.MatchBlockedWord("this contains SCAMWORD inside"); hit {
		t.Fatalf("whitelisted word must not match")
	}
	delete(p.WordWhitelist, "scamword")
	word, hit := p.MatchBlockedWord("this contains SCAMWORD inside")
	if !hit || word != "scamword" {
		t.Fatalf("expected scamword hit, got %q %v", word, hit)
	}
}

func TestDomainWhitelistPrecedence(t *testing.T) {
	p := Default("g1")
	p.BlockedDomains["both.com"] = SeverityMinor
	p.DomainWhitelist["both.com"] = struct{}{}
	if p.DomainBlocked("both.com") {
		t.Fatalf("whitelist must win over block list")
	}
	if !p.DomainAllowed("BOTH.com") {
		t.Fatalf("whitelist lookup should be case-insensitive")
	}
}

func TestActionForHighestThresholdWins(t *testing.T) {
	p := Default("g1")
	p.Thresholds = Thresholds{Warn: 1, Timeout: 3, Kick: 5, Ban: 7}

	cases := []struct {
		count int
		want  Action
	}{
		{0, ""},
		{1, ActionWarn},
		{2, ActionWarn},
		{3, ActionTimeout},
		{4, ActionTimeout},
		{5, ActionKick},
		{6, ActionKick},
		{7, ActionBan},
		{12, ActionBan},
	}
	for _, tc := range cases {
		if got := p.ActionFor(tc.count); got != tc.want {
			t.Fatalf("count %d: expected %q, got %q", tc.count, tc.want, got)
		}
	}
}

func TestStateFor(t *testing.T) {
	p := Default("g1")
	if p.StateFor(0) != StateClean {
		t.Fatalf("expected clean")
	}
	if p.StateFor(3) != StateTimedOut {
		t.Fatalf("expected timed_out")
	}
	if p.StateFor(7) != StateBanned {
		t.Fatalf("expected banned")
	}
}

func TestLinkChannelDesignation(t *testing.T) {
	p := Default("g1")
	if p.LinkRestrictionActive() {
		t.Fatalf("no designated channels means the restriction is off")
	}
	p.LinkChannels["links"] = struct{}{}
	if !p.LinkRestrictionActive() {
		t.Fatalf("designating a channel activates the restriction")
	}
	if p.ChannelDesignated("c1") {
		t.Fatalf("c1 is not designated")
	}
	if !p.ChannelDesignated("links") {
		t.Fatalf("links is designated")
	}
}
