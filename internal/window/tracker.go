// Package window implements the sliding-window rate detectors used by the
// moderation pipeline: link bursts, rapid posting, and cross-channel
// duplicates. The tracker is constructed once at startup and injected into
// the message handler; every method takes an explicit now for testability.
package window

import (
	"sync"
	"time"
)

type Config struct {
	// Window bounds the link-post counter used by IsSpamming.
	Window time.Duration
	// MaxLinks is the base link limit inside Window for mature accounts.
	MaxLinks int
	// DupWindow bounds cross-channel duplicate detection.
	DupWindow time.Duration
	// DupChannelThreshold is the distinct-channel count that flags a duplicate.
	DupChannelThreshold int
	// MaxEntries caps each tracking map; exceeding it triggers an eviction
	// sweep so memory stays bounded on long uptimes.
	MaxEntries int
}

func DefaultConfig() Config {
	return Config{
		Window:              60 * time.Second,
		MaxLinks:            3,
		DupWindow:           5 * time.Minute,
		DupChannelThreshold: 3,
		MaxEntries:          10000,
	}
}

const (
	rapidWindow  = 10 * time.Second
	rapidPosts   = 5
	rapidMinGap  = 2 * time.Second
	youngAccount = 24 * time.Hour
	newishAcount = 7 * 24 * time.Hour
)

type dupPost struct {
	at      time.Time
	channel string
}

type Tracker struct {
	mu    sync.Mutex
	cfg   Config
	links map[string][]time.Time
	posts map[string][]time.Time
	dups  map[string][]dupPost
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = DefaultConfig().MaxLinks
	}
	if cfg.DupWindow <= 0 {
		cfg.DupWindow = DefaultConfig().DupWindow
	}
	if cfg.DupChannelThreshold <= 0 {
		cfg.DupChannelThreshold = DefaultConfig().DupChannelThreshold
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	return &Tracker{
		cfg:   cfg,
		links: make(map[string][]time.Time),
		posts: make(map[string][]time.Time),
		dups:  make(map[string][]dupPost),
	}
}

// RegisterPost records a link post for userID and returns the count of link
// posts inside the window, including this one.
func (t *Tracker) RegisterPost(userID string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	hits := pruneTimes(t.links[userID], now.Add(-t.cfg.Window))
	hits = append(hits, now)
	t.links[userID] = hits
	t.sweepLinksLocked(now)
	return len(hits)
}

// IsSpamming reports whether userID has exceeded the adaptive link limit.
// The base limit is reduced by 2 for accounts under 24h (floor 1) and by 1
// for accounts under 7 days (floor 2).
func (t *Tracker) IsSpamming(userID string, accountAge time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	hits := pruneTimes(t.links[userID], now.Add(-t.cfg.Window))
	t.links[userID] = hits
	return len(hits) > t.adaptiveLimit(accountAge)
}

func (t *Tracker) adaptiveLimit(accountAge time.Duration) int {
	limit := t.cfg.MaxLinks
	switch {
	case accountAge < youngAccount:
		limit -= 2
		if limit < 1 {
			limit = 1
		}
	case accountAge < newishAcount:
		limit--
		if limit < 2 {
			limit = 2
		}
	}
	return limit
}

// IsRapidPosting records a post for userID and reports whether the last ten
// seconds hold at least five posts with any consecutive pair under two
// seconds apart.
func (t *Tracker) IsRapidPosting(userID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	hits := pruneTimes(t.posts[userID], now.Add(-rapidWindow))
	hits = append(hits, now)
	t.posts[userID] = hits
	t.sweepPostsLocked(now)

	if len(hits) < rapidPosts {
		return false
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Sub(hits[i-1]) < rapidMinGap {
			return true
		}
	}
	return false
}

// IsCrossChannelSpam records the (user, content) posting and reports whether
// the same content reached the distinct-channel threshold inside the window.
func (t *Tracker) IsCrossChannelSpam(userID, contentHash, channelID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := userID + ":" + contentHash
	entries := t.dups[key]
	cutoff := now.Add(-t.cfg.DupWindow)
	idx := 0
	for _, e := range entries {
		if e.at.After(cutoff) {
			break
		}
		idx++
	}
	entries = append(entries[idx:], dupPost{at: now, channel: channelID})
	t.dups[key] = entries
	t.sweepDupsLocked(now)

	channels := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		channels[e.channel] = struct{}{}
	}
	return len(channels) >= t.cfg.DupChannelThreshold
}

// Eviction sweeps run only once an insert pushes a map past MaxEntries, so
// the steady-state cost stays on the lazy per-key pruning.

func (t *Tracker) sweepLinksLocked(now time.Time) {
	if len(t.links) <= t.cfg.MaxEntries {
		return
	}
	cutoff := now.Add(-t.cfg.Window)
	for key, hits := range t.links {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(t.links, key)
		}
	}
}

func (t *Tracker) sweepPostsLocked(now time.Time) {
	if len(t.posts) <= t.cfg.MaxEntries {
		return
	}
	cutoff := now.Add(-rapidWindow)
	for key, hits := range t.posts {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(t.posts, key)
		}
	}
}

func (t *Tracker) sweepDupsLocked(now time.Time) {
	if len(t.dups) <= t.cfg.MaxEntries {
		return
	}
	cutoff := now.Add(-t.cfg.DupWindow)
	for key, entries := range t.dups {
		if len(entries) == 0 || !entries[len(entries)-1].at.After(cutoff) {
			delete(t.dups, key)
		}
	}
}

func pruneTimes(hits []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for _, hit := range hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	return hits[idx:]
}
