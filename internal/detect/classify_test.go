package detect

import (
	"testing"
	"time"
)

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("check https://example.com/x and www.other.net/y out")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
}

func TestExtractInvites(t *testing.T) {
	invites := ExtractInvites("join discord.gg/abc123 or https://discord.com/invite/xyz")
	if len(invites) != 2 || invites[0] != "abc123" || invites[1] != "xyz" {
		t.Fatalf("unexpected invites: %v", invites)
	}
	if ExtractInvites("no invite here") != nil {
		t.Fatalf("expected no invites")
	}
}

func TestNormalizeHost(t *testing.T) {
	host, ok := NormalizeHost("HTTPS://Example.COM/path?q=1")
	if !ok || host != "example.com" {
		t.Fatalf("unexpected host %q ok=%v", host, ok)
	}
	host, ok = NormalizeHost("malware-site.com")
	if !ok || host != "malware-site.com" {
		t.Fatalf("scheme-less host should normalize, got %q ok=%v", host, ok)
	}
	if _, ok := NormalizeHost("http://%zz"); ok {
		t.Fatalf("malformed URL must be a non-match")
	}
}

func TestBlockedKeywordFullAndPartial(t *testing.T) {
	if !MatchesBlockedKeyword("claim your FREE NITRO now") {
		t.Fatalf("full keyword should match")
	}
	if !MatchesBlockedKeyword("fr33 n1tro over here") {
		t.Fatalf("partial keyword should match leetspeak")
	}
	if MatchesBlockedKeyword("nitrogen chemistry homework") {
		t.Fatalf("unrelated content must not match")
	}
}

func TestBypassAttempt(t *testing.T) {
	if !IsBypassAttempt("free​nitro give away") {
		t.Fatalf("zero-width character is a bypass attempt")
	}
	if !IsBypassAttempt("fr33 nitr0 giveaway") {
		t.Fatalf("leetspeak resolving to a prohibited term is a bypass attempt")
	}
	if !IsBypassAttempt("f.r.e.e n.i.t.r.o for you") {
		t.Fatalf("punctuation interleaving is a bypass attempt")
	}
	if IsBypassAttempt("perfectly normal message") {
		t.Fatalf("normal content is not a bypass attempt")
	}
}

func TestSuspiciousFormatting(t *testing.T) {
	if !IsSuspiciousFormatting("THIS IS ALL CAPS SHOUTING CONTENT") {
		t.Fatalf("excessive caps should flag")
	}
	if !IsSuspiciousFormatting("hello!!!!!!!! there") {
		t.Fatalf("repeated special characters should flag")
	}
	if IsSuspiciousFormatting("a calm ordinary sentence.") {
		t.Fatalf("ordinary text must not flag")
	}
}

func TestClassifyScoreMonotonic(t *testing.T) {
	base := Classify(Input{Content: "hello there", AccountAge: 30 * 24 * time.Hour})
	young := Classify(Input{Content: "hello there", AccountAge: time.Hour})
	if young.SuspicionScore <= base.SuspicionScore {
		t.Fatalf("young account must raise score: %d vs %d", young.SuspicionScore, base.SuspicionScore)
	}

	withBypass := Classify(Input{Content: "fr33 nitr0 giveaway", AccountAge: time.Hour})
	if withBypass.SuspicionScore <= young.SuspicionScore {
		t.Fatalf("bypass attempt must raise score further")
	}
	if !withBypass.BypassAttempt {
		t.Fatalf("expected bypass attempt flag")
	}
}

func TestClassifyMentionAndURLWeights(t *testing.T) {
	few := Classify(Input{Content: "hi", MentionCount: 2, AccountAge: 30 * 24 * time.Hour})
	many := Classify(Input{Content: "hi", MentionCount: 9, AccountAge: 30 * 24 * time.Hour})
	if many.SuspicionScore <= few.SuspicionScore {
		t.Fatalf("mentions above baseline must raise score")
	}

	withURL := Classify(Input{Content: "see https://example.com", AccountAge: 30 * 24 * time.Hour})
	if len(withURL.URLs) != 1 || withURL.SuspicionScore <= 0 {
		t.Fatalf("url should contribute to score, got %+v", withURL)
	}
}

func TestIsAdultSite(t *testing.T) {
	if !IsAdultSite("free-porn-videos.example") {
		t.Fatalf("adult marker should classify")
	}
	if IsAdultSite("example.com") {
		t.Fatalf("plain host is not adult")
	}
}
