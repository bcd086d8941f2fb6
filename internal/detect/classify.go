// Package detect holds the pure content classifiers of the moderation
// pipeline. Every function is side-effect-free and never returns an error:
// anything that cannot be parsed is treated as a non-match.
package detect

import "time"

// Input carries everything the classifiers need about one message.
type Input struct {
	Content      string
	MentionCount int
	AccountAge   time.Duration
}

// Classification is the result of running all pattern matchers over a message.
type Classification struct {
	URLs                 []string
	Invites              []string
	BlockedKeywordHit    bool
	BypassAttempt        bool
	SuspiciousFormatting bool
	SuspicionScore       int
}

// Suspicion score weights. Each positive signal increases the score
// monotonically; the pipeline acts at scores of 15 and 25.
const (
	weightAccountUnderDay  = 8
	weightAccountUnderWeek = 4
	weightBypassAttempt    = 10
	weightFormatting       = 7
	weightBlockedKeyword   = 10
	weightPerExtraMention  = 1
	weightPerURL           = 2
	weightInvite           = 3

	maxMentionWeight = 5
	maxURLWeight     = 6

	mentionBaseline = 3
)

// Classify runs every pattern matcher over the message and accumulates the
// suspicion score.
func Classify(in Input) Classification {
	c := Classification{
		URLs:                 ExtractURLs(in.Content),
		Invites:              ExtractInvites(in.Content),
		BlockedKeywordHit:    MatchesBlockedKeyword(in.Content),
		BypassAttempt:        IsBypassAttempt(in.Content),
		SuspiciousFormatting: IsSuspiciousFormatting(in.Content),
	}

	score := 0
	switch {
	case in.AccountAge < 24*time.Hour:
		score += weightAccountUnderDay
	case in.AccountAge < 7*24*time.Hour:
		score += weightAccountUnderWeek
	}
	if c.BypassAttempt {
		score += weightBypassAttempt
	}
	if c.SuspiciousFormatting {
		score += weightFormatting
	}
	if c.BlockedKeywordHit {
		score += weightBlockedKeyword
	}
	if extra := in.MentionCount - mentionBaseline; extra > 0 {
		w := extra * weightPerExtraMention
		if w > maxMentionWeight {
			w = maxMentionWeight
		}
		score += w
	}
	if n := len(c.URLs); n > 0 {
		w := n * weightPerURL
		if w > maxURLWeight {
			w = maxURLWeight
		}
		score += w
	}
	if len(c.Invites) > 0 {
		score += weightInvite
	}
	c.SuspicionScore = score
	return c
}
