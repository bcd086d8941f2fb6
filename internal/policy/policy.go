package policy

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

type Action string

const (
	ActionWarn    Action = "warn"
	ActionTimeout Action = "timeout"
	ActionKick    Action = "kick"
	ActionBan     Action = "ban"
)

// Thresholds maps an enforcement action to the active-warning count that
// triggers it. Values must be monotonically increasing warn < timeout < kick < ban.
type Thresholds struct {
	Warn    int
	Timeout int
	Kick    int
	Ban     int
}

// Policy is the per-guild moderation configuration, loaded fresh on each
// message. Mutated only by administrative commands.
type Policy struct {
	GuildID        string
	Enabled        bool
	AutoWarn       bool
	AutoEscalation bool
	DeleteMessages bool
	MaxMentions    int
	TimeoutMinutes int
	WarningTTL     time.Duration

	BlockedWords    map[string]Severity
	BlockedDomains  map[string]Severity
	WordWhitelist   map[string]struct{}
	DomainWhitelist map[string]struct{}
	LinkChannels    map[string]struct{}

	Thresholds Thresholds
}

func Default(guildID string) Policy {
	return Policy{
		GuildID:         guildID,
		Enabled:         true,
		AutoWarn:        true,
		AutoEscalation:  true,
		DeleteMessages:  true,
		MaxMentions:     8,
		TimeoutMinutes:  10,
		WarningTTL:      30 * 24 * time.Hour,
		BlockedWords:    map[string]Severity{},
		BlockedDomains:  map[string]Severity{},
		WordWhitelist:   map[string]struct{}{},
		DomainWhitelist: map[string]struct{}{},
		LinkChannels:    map[string]struct{}{},
		Thresholds:      Thresholds{Warn: 1, Timeout: 3, Kick: 5, Ban: 7},
	}
}

// SeverityOf returns the severity bucket containing item, defaulting to minor
// when the item is unbucketed or the bucket value is unknown.
func SeverityOf(item string, buckets map[string]Severity) Severity {
	sev, ok := buckets[strings.ToLower(item)]
	if !ok {
		return SeverityMinor
	}
	switch sev {
	case SeverityMinor, SeverityModerate, SeveritySevere:
		return sev
	default:
		return SeverityMinor
	}
}

// MatchBlockedWord reports the first blocked word contained in content that is
// not overridden by the whitelist, case-insensitively.
func (p Policy) MatchBlockedWord(content string) (string, bool) {
	lower := strings.ToLower(content)
	for word := range p.BlockedWords {
		if word == "" {
			continue
		}
		if _, ok := p.WordWhitelist[word]; ok {
			continue
		}
		if strings.Contains(lower, word) {
			return word, true
		}
	}
	return "", false
}

// DomainAllowed reports whether host is explicitly whitelisted. Whitelist
// always wins over the block list.
func (p Policy) DomainAllowed(host string) bool {
	_, ok := p.DomainWhitelist[strings.ToLower(host)]
	return ok
}

// DomainBlocked reports whether host is on the block list and not whitelisted.
func (p Policy) DomainBlocked(host string) bool {
	host = strings.ToLower(host)
	if p.DomainAllowed(host) {
		return false
	}
	_, ok := p.BlockedDomains[host]
	return ok
}

// ChannelDesignated reports whether channelID is explicitly designated for
// links. Designated channels are exempt from domain blocking and link
// restrictions.
func (p Policy) ChannelDesignated(channelID string) bool {
	_, ok := p.LinkChannels[channelID]
	return ok
}

// LinkRestrictionActive reports whether the guild restricts ordinary links to
// designated channels at all. With no designated channels the restriction is
// off and only blocked domains and adult sites are enforced.
func (p Policy) LinkRestrictionActive() bool {
	return len(p.LinkChannels) > 0
}

// ActionFor returns the highest threshold action the active-warning count has
// reached or exceeded, or "" when no threshold applies.
func (p Policy) ActionFor(activeCount int) Action {
	t := p.Thresholds
	switch {
	case t.Ban > 0 && activeCount >= t.Ban:
		return ActionBan
	case t.Kick > 0 && activeCount >= t.Kick:
		return ActionKick
	case t.Timeout > 0 && activeCount >= t.Timeout:
		return ActionTimeout
	case t.Warn > 0 && activeCount >= t.Warn:
		return ActionWarn
	default:
		return ""
	}
}

// UserState is the moderation status derived from the active-warning count.
type UserState string

const (
	StateClean    UserState = "clean"
	StateWarned   UserState = "warned"
	StateTimedOut UserState = "timed_out"
	StateKicked   UserState = "kicked"
	StateBanned   UserState = "banned"
)

// StateFor maps an active-warning count to the derived moderation state.
func (p Policy) StateFor(activeCount int) UserState {
	switch p.ActionFor(activeCount) {
	case ActionBan:
		return StateBanned
	case ActionKick:
		return StateKicked
	case ActionTimeout:
		return StateTimedOut
	case ActionWarn:
		return StateWarned
	default:
		return StateClean
	}
}
