package detect

import (
	"regexp"
	"strings"
	"unicode"
)

// Fixed prohibited-term list enforced regardless of per-guild configuration.
// The full regex matches whole terms, the partial regex catches common
// obfuscated spellings.
var (
	fullKeywordRegex    = regexp.MustCompile(`(?i)\b(free\s+nitro|nitro\s+giveaway|free\s+robux|steam\s+gift\s*card|account\s+generator)\b`)
	partialKeywordRegex = regexp.MustCompile(`(?i)(n[i1!]tr[o0]\s*g[i1!]ft|fr[e3][e3]\s*n[i1!]tr[o0]|st[e3][a4]m\s*g[i1!]ft)`)
)

var leetReplacer = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a",
	"5", "s", "7", "t", "@", "a", "$", "s", "!", "i",
)

var zeroWidthRunes = map[rune]struct{}{
	'\u200b': {}, // zero width space
	'\u200c': {},
	'\u200d': {},
	'\u2060': {},
	'\ufeff': {},
}

// MatchesBlockedKeyword reports whether content matches the fixed
// prohibited-term list, either verbatim or in a common obfuscated spelling.
func MatchesBlockedKeyword(content string) bool {
	return fullKeywordRegex.MatchString(content) || partialKeywordRegex.MatchString(content)
}

// IsBypassAttempt detects character substitution or obfuscation intended to
// evade keyword matching: zero-width characters, leetspeak spellings that
// resolve to a prohibited term, or punctuation interleaved through one.
func IsBypassAttempt(content string) bool {
	if containsZeroWidth(content) {
		return true
	}

	// A term that only matches after de-leeting was obfuscated on purpose.
	deleeted := leetReplacer.Replace(strings.ToLower(content))
	if !fullKeywordRegex.MatchString(content) && fullKeywordRegex.MatchString(deleeted) {
		return true
	}

	// f.r.e.e n-i-t-r-o style interleaving.
	stripped := stripInterleaving(content)
	if !fullKeywordRegex.MatchString(content) && fullKeywordRegex.MatchString(stripped) {
		return true
	}
	return false
}

func containsZeroWidth(content string) bool {
	for _, r := range content {
		if _, ok := zeroWidthRunes[r]; ok {
			return true
		}
	}
	return false
}

// stripInterleaving removes punctuation wedged between letters while keeping
// word boundaries, so "f.r.e.e n.i.t.r.o" collapses to "free nitro".
func stripInterleaving(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// IsSuspiciousFormatting flags formatting anomalies: excessive caps, long
// runs of repeated special characters, or a high share of characters from
// unusual unicode ranges.
func IsSuspiciousFormatting(content string) bool {
	letters, upper, special, unusual := 0, 0, 0, 0
	maxSpecialRun, specialRun := 0, 0
	total := 0
	for _, r := range content {
		total++
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
			if !unicode.In(r, unicode.Latin) {
				unusual++
			}
			specialRun = 0
			continue
		}
		if unicode.IsSpace(r) || unicode.IsDigit(r) {
			specialRun = 0
			continue
		}
		special++
		specialRun++
		if specialRun > maxSpecialRun {
			maxSpecialRun = specialRun
		}
	}

	if letters >= 10 && float64(upper)/float64(letters) > 0.7 {
		return true
	}
	if maxSpecialRun >= 6 {
		return true
	}
	if total >= 8 && letters > 0 && float64(unusual)/float64(letters) > 0.5 {
		return true
	}
	return false
}
