package pipeline

import (
	"time"

	"github.com/modguard/modguard/internal/detect"
	"github.com/modguard/modguard/internal/policy"
)

// Violation kinds, in cascade priority order.
const (
	KindBlockedWord       = "blocked_word"
	KindBlockedKeyword    = "blocked_keyword"
	KindBypassAttempt     = "bypass_attempt"
	KindSuspiciousFormat  = "suspicious_formatting"
	KindHighSuspicion     = "high_suspicion"
	KindNewAccount        = "new_account"
	KindExcessiveMentions = "excessive_mentions"
	KindBlockedDomain     = "blocked_domain"
	KindRestrictedLink    = "restricted_link"
	KindLinkSpam          = "link_spam"
	KindRapidPosting      = "rapid_posting"
	KindCrossChannelSpam  = "cross_channel_spam"
	KindAdultInvite       = "adult_invite"
)

// Suspicion score cutoffs used by the cascade.
const (
	suspicionTimeout = 15
	suspicionForce   = 25
)

// Detectors returns the cascade in priority order. First match wins; the
// dispatcher skips all later detectors for that message.
func Detectors() []Detector {
	return []Detector{
		blockedWordDetector{},
		blockedKeywordDetector{},
		bypassDetector{},
		formattingDetector{},
		highSuspicionDetector{},
		newAccountDetector{},
		mentionDetector{},
		urlDetector{},
		spamDetector{},
		adultInviteDetector{},
	}
}

// blockedWordDetector checks the per-guild blocked-word list before anything
// else. Detection runs for admins too; the admin flag only suppresses the
// action.
type blockedWordDetector struct{}

func (blockedWordDetector) Name() string { return KindBlockedWord }

func (blockedWordDetector) Detect(eval *Evaluation) *Violation {
	word, hit := eval.Policy.MatchBlockedWord(eval.Msg.Content)
	if !hit {
		return nil
	}
	return &Violation{
		Kind:             KindBlockedWord,
		Reason:           reasonf("word=%s", word),
		Severity:         policy.SeverityOf(word, eval.Policy.BlockedWords),
		DeleteMessage:    true,
		SendWarning:      true,
		ActionSuppressed: eval.Msg.IsAdmin,
		UserNotice:       "your message contained a blocked word and was removed",
	}
}

// blockedKeywordDetector enforces the fixed prohibited-term list for
// non-admins and forces a timeout rather than a plain delete.
type blockedKeywordDetector struct{}

func (blockedKeywordDetector) Name() string { return KindBlockedKeyword }

func (blockedKeywordDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.IsAdmin || !eval.Class.BlockedKeywordHit {
		return nil
	}
	return &Violation{
		Kind:            KindBlockedKeyword,
		Reason:          "prohibited term matched",
		Severity:        policy.SeverityModerate,
		DeleteMessage:   true,
		SendWarning:     true,
		ForceEscalation: true,
		ForcedAction:    policy.ActionTimeout,
		UserNotice:      "your message matched a prohibited term and was removed",
	}
}

type bypassDetector struct{}

func (bypassDetector) Name() string { return KindBypassAttempt }

func (bypassDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.IsAdmin || !eval.Class.BypassAttempt {
		return nil
	}
	return &Violation{
		Kind:            KindBypassAttempt,
		Reason:          "filter bypass attempt",
		Severity:        policy.SeverityModerate,
		DeleteMessage:   true,
		SendWarning:     true,
		ForceEscalation: true,
		ForcedAction:    policy.ActionTimeout,
		UserNotice:      "obfuscated content is not allowed; your message was removed",
	}
}

// formattingDetector escalates to a timeout only when the aggregate suspicion
// score backs the formatting signal up; below the cutoff it deletes and warns.
type formattingDetector struct{}

func (formattingDetector) Name() string { return KindSuspiciousFormat }

func (formattingDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.IsAdmin || !eval.Class.SuspiciousFormatting {
		return nil
	}
	v := &Violation{
		Kind:          KindSuspiciousFormat,
		Reason:        reasonf("suspicion=%d", eval.Class.SuspicionScore),
		Severity:      policy.SeverityMinor,
		DeleteMessage: true,
		SendWarning:   true,
		UserNotice:    "your message formatting violated server rules and was removed",
	}
	if eval.Class.SuspicionScore >= suspicionTimeout {
		v.ForceEscalation = true
		v.ForcedAction = policy.ActionTimeout
	}
	return v
}

type highSuspicionDetector struct{}

func (highSuspicionDetector) Name() string { return KindHighSuspicion }

func (highSuspicionDetector) Detect(eval *Evaluation) *Violation {
	if eval.Class.SuspicionScore < suspicionForce {
		return nil
	}
	return &Violation{
		Kind:            KindHighSuspicion,
		Reason:          reasonf("suspicion=%d", eval.Class.SuspicionScore),
		Severity:        policy.SeverityModerate,
		DeleteMessage:   true,
		SendWarning:     true,
		ForceEscalation: true,
		ForcedAction:    policy.ActionTimeout,
		UserNotice:      "your message was removed",
	}
}

// newAccountDetector times out accounts younger than a day whose message
// already carries a suspicion score at or above the cutoff. The comparison is
// inclusive: a score of exactly 15 triggers.
type newAccountDetector struct{}

func (newAccountDetector) Name() string { return KindNewAccount }

func (newAccountDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.AccountAge >= 24*time.Hour {
		return nil
	}
	if eval.Class.SuspicionScore < suspicionTimeout {
		return nil
	}
	return &Violation{
		Kind:            KindNewAccount,
		Reason:          reasonf("account_age=%s suspicion=%d", eval.Msg.AccountAge, eval.Class.SuspicionScore),
		Severity:        policy.SeverityModerate,
		DeleteMessage:   true,
		SendWarning:     true,
		ForceEscalation: true,
		ForcedAction:    policy.ActionTimeout,
		UserNotice:      "your message was removed",
	}
}

type mentionDetector struct{}

func (mentionDetector) Name() string { return KindExcessiveMentions }

func (mentionDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.IsAdmin || eval.Policy.MaxMentions <= 0 {
		return nil
	}
	if eval.Msg.MentionCount <= eval.Policy.MaxMentions {
		return nil
	}
	return &Violation{
		Kind:          KindExcessiveMentions,
		Reason:        reasonf("mentions=%d max=%d", eval.Msg.MentionCount, eval.Policy.MaxMentions),
		Severity:      policy.SeverityMinor,
		DeleteMessage: true,
		SendWarning:   true,
		UserNotice:    "mass mentions are not allowed; your message was removed",
	}
}

// urlDetector applies the domain checks: whitelist always wins, blocked
// domains violate outside designated link channels, and adult or
// non-whitelisted links violate in non-designated channels.
type urlDetector struct{}

func (urlDetector) Name() string { return KindBlockedDomain }

func (urlDetector) Detect(eval *Evaluation) *Violation {
	pol := eval.Policy
	designated := pol.ChannelDesignated(eval.Msg.ChannelID)

	for _, host := range eval.Hosts {
		if pol.DomainAllowed(host) {
			continue
		}
		if pol.DomainBlocked(host) && !designated {
			return &Violation{
				Kind:          KindBlockedDomain,
				Reason:        reasonf("domain=%s", host),
				Severity:      policy.SeverityOf(host, pol.BlockedDomains),
				DeleteMessage: true,
				SendWarning:   true,
				UserNotice:    "links to that site are not allowed here",
			}
		}
		if detect.IsAdultSite(host) && !designated {
			return &Violation{
				Kind:          KindRestrictedLink,
				Reason:        reasonf("adult_domain=%s", host),
				Severity:      policy.SeveritySevere,
				DeleteMessage: true,
				SendWarning:   true,
				UserNotice:    "links to that site are not allowed here",
			}
		}
		if pol.LinkRestrictionActive() && !designated {
			return &Violation{
				Kind:          KindRestrictedLink,
				Reason:        reasonf("link_outside_designated_channel domain=%s", host),
				Severity:      policy.SeverityMinor,
				DeleteMessage: true,
				SendWarning:   true,
				UserNotice:    "links are only allowed in the designated channels",
			}
		}
	}
	return nil
}

// spamDetector reports the rate-window signals. Each independently forces an
// escalation; they are checked in link-spam, rapid-posting, cross-channel
// order.
type spamDetector struct{}

func (spamDetector) Name() string { return KindLinkSpam }

func (spamDetector) Detect(eval *Evaluation) *Violation {
	base := Violation{
		Severity:        policy.SeverityModerate,
		DeleteMessage:   true,
		SendWarning:     true,
		ForceEscalation: true,
		ForcedAction:    policy.ActionTimeout,
		UserNotice:      "stop spamming; your message was removed",
	}
	switch {
	case eval.Signals.LinkSpam:
		base.Kind = KindLinkSpam
		base.Reason = "link burst over adaptive limit"
	case eval.Signals.RapidPosting:
		base.Kind = KindRapidPosting
		base.Reason = "rapid posting burst"
	case eval.Signals.CrossChannelSpam:
		base.Kind = KindCrossChannelSpam
		base.Reason = "same content across multiple channels"
	default:
		return nil
	}
	return &base
}

type adultInviteDetector struct{}

func (adultInviteDetector) Name() string { return KindAdultInvite }

func (adultInviteDetector) Detect(eval *Evaluation) *Violation {
	if eval.Msg.IsAdmin || len(eval.Class.Invites) == 0 {
		return nil
	}
	if !detect.IsAdultInviteContext(eval.Msg.Content) {
		return nil
	}
	return &Violation{
		Kind:          KindAdultInvite,
		Reason:        reasonf("invites=%d", len(eval.Class.Invites)),
		Severity:      policy.SeveritySevere,
		DeleteMessage: true,
		SendWarning:   true,
		UserNotice:    "invites to adult servers are not allowed",
	}
}
