package window

import (
	"fmt"
	"testing"
	"time"
)

func TestIsSpammingAdaptiveLimit(t *testing.T) {
	tr := NewTracker(Config{Window: 60 * time.Second, MaxLinks: 3})
	now := time.Unix(1000, 0)
	mature := 30 * 24 * time.Hour

	for i := 0; i < 4; i++ {
		tr.RegisterPost("u1", now.Add(time.Duration(i)*10*time.Second))
	}
	if !tr.IsSpamming("u1", mature, now.Add(30*time.Second)) {
		t.Fatalf("4 links in 60s must flag a mature account at limit 3")
	}

	// Same count spread beyond the window is clean.
	tr2 := NewTracker(Config{Window: 60 * time.Second, MaxLinks: 3})
	for i := 0; i < 4; i++ {
		tr2.RegisterPost("u1", now.Add(time.Duration(i)*70*time.Second))
	}
	if tr2.IsSpamming("u1", mature, now.Add(3*70*time.Second)) {
		t.Fatalf("links spread across 120s+ must not flag")
	}
}

func TestIsSpammingYoungAccountFloors(t *testing.T) {
	tr := NewTracker(Config{Window: 60 * time.Second, MaxLinks: 3})
	now := time.Unix(2000, 0)

	// <24h account: limit 3-2=1, so the second link flags.
	tr.RegisterPost("young", now)
	tr.RegisterPost("young", now.Add(time.Second))
	if !tr.IsSpamming("young", time.Hour, now.Add(2*time.Second)) {
		t.Fatalf("young account must flag at 2 links")
	}

	// <7d account: limit 3-1=2, third link flags.
	tr.RegisterPost("newish", now)
	tr.RegisterPost("newish", now.Add(time.Second))
	if tr.IsSpamming("newish", 3*24*time.Hour, now.Add(2*time.Second)) {
		t.Fatalf("newish account at 2 links is at the limit, not over it")
	}
	tr.RegisterPost("newish", now.Add(2*time.Second))
	if !tr.IsSpamming("newish", 3*24*time.Hour, now.Add(3*time.Second)) {
		t.Fatalf("newish account must flag at 3 links")
	}
}

func TestIsRapidPosting(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	now := time.Unix(3000, 0)

	// 5 posts in 10s, all gaps exactly 2s: must not trigger.
	flagged := false
	for i := 0; i < 5; i++ {
		flagged = tr.IsRapidPosting("slow", now.Add(time.Duration(i)*2*time.Second))
	}
	if flagged {
		t.Fatalf("gaps of exactly 2s must not trigger")
	}

	// Same count with one sub-2s gap triggers.
	times := []time.Duration{0, 2 * time.Second, 4 * time.Second, 6 * time.Second, 7 * time.Second}
	for i, d := range times {
		flagged = tr.IsRapidPosting("fast", now.Add(d))
		if i < len(times)-1 && flagged {
			t.Fatalf("must not trigger before the fifth post")
		}
	}
	if !flagged {
		t.Fatalf("a sub-2s gap with 5 posts in 10s must trigger")
	}
}

func TestIsCrossChannelSpam(t *testing.T) {
	tr := NewTracker(Config{DupWindow: 5 * time.Minute, DupChannelThreshold: 3})
	now := time.Unix(4000, 0)

	if tr.IsCrossChannelSpam("u1", "h1", "c1", now) {
		t.Fatalf("one channel must not flag")
	}
	if tr.IsCrossChannelSpam("u1", "h1", "c2", now.Add(time.Second)) {
		t.Fatalf("two channels is below the threshold")
	}
	// Repeat in an already-seen channel does not add a distinct channel.
	if tr.IsCrossChannelSpam("u1", "h1", "c2", now.Add(2*time.Second)) {
		t.Fatalf("repeat channel must not count as distinct")
	}
	if !tr.IsCrossChannelSpam("u1", "h1", "c3", now.Add(3*time.Second)) {
		t.Fatalf("third distinct channel must flag")
	}

	// Outside the window the earlier channels are forgotten.
	if tr.IsCrossChannelSpam("u1", "h1", "c4", now.Add(10*time.Minute)) {
		t.Fatalf("stale entries must be pruned")
	}
}

func TestEvictionSweepBoundsGrowth(t *testing.T) {
	tr := NewTracker(Config{Window: time.Second, MaxLinks: 3, MaxEntries: 10})
	now := time.Unix(5000, 0)

	for i := 0; i < 50; i++ {
		tr.RegisterPost(fmt.Sprintf("user-%d", i), now.Add(time.Duration(i)*2*time.Second))
	}
	tr.mu.Lock()
	size := len(tr.links)
	tr.mu.Unlock()
	if size > 11 {
		t.Fatalf("sweep should bound map growth, got %d entries", size)
	}
}
