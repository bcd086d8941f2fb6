package detect

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	// Bare domains need a known TLD so version strings like "v2.0" stay
	// unmatched.
	urlRegex    = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|net|org|io|co|gg|xyz|info|biz|ru|cn|tk|ml|ga|cf)\b(?:/\S*)?`)
	inviteRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?discord(?:\.gg|(?:app)?\.com/invite)/([a-zA-Z0-9-]+)`)
)

// ExtractURLs returns every http/https or www URL found in content.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractInvites returns the invite codes of every Discord invite in content.
func ExtractInvites(content string) []string {
	matches := inviteRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, m[1])
	}
	return codes
}

// NormalizeHost strips the scheme from raw, lowercases the hostname, and
// converts internationalized names to ASCII. Malformed URLs return ok=false
// and are treated as non-matches by callers.
func NormalizeHost(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host, true
}

var adultHostMarkers = []string{
	"porn", "xxx", "nsfw", "hentai", "onlyfans", "xvideos", "xhamster", "redtube",
}

// IsAdultSite classifies a normalized hostname as adult content.
func IsAdultSite(host string) bool {
	host = strings.ToLower(host)
	for _, marker := range adultHostMarkers {
		if strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

var adultInviteMarkers = []string{"porn", "xxx", "nsfw", "18+", "onlyfans", "nudes"}

// IsAdultInviteContext reports whether invite-bearing content advertises an
// adult server. The check runs on the surrounding message text because the
// invite code itself carries no metadata.
func IsAdultInviteContext(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range adultInviteMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
