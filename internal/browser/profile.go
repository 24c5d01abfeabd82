// Package browser derives client characteristics from a user agent string.
package browser

import (
	"regexp"
	"strings"
)

// Profile describes the client running a speed test
type Profile struct {
	IsSafari bool   `json:"is_safari"`
	IsMobile bool   `json:"is_mobile"`
	IsIOS    bool   `json:"is_ios"`
	Browser  string `json:"browser"`
	Version  string `json:"version"`
	OS       string `json:"os"`
}

var (
	mobileRe      = regexp.MustCompile(`(?i)Mobi|Android|iPhone|iPad|iPod`)
	iosRe         = regexp.MustCompile(`iPad|iPhone|iPod`)
	safariTokenRe = regexp.MustCompile(`\sSafari/`)
	firefoxVerRe  = regexp.MustCompile(`Firefox/([0-9.]+)`)
	edgeVerRe     = regexp.MustCompile(`Edge/([0-9.]+)`)
	edgChromiumRe = regexp.MustCompile(`Edg/([0-9.]+)`)
	chromeVerRe   = regexp.MustCompile(`Chrome/([0-9.]+)`)
	safariVerRe   = regexp.MustCompile(`Version/([0-9.]+)`)
	msieVerRe     = regexp.MustCompile(`MSIE ([0-9.]+)`)
	tridentVerRe  = regexp.MustCompile(`rv:([0-9.]+)`)
	macRe         = regexp.MustCompile(`Macintosh|MacIntel|MacPPC|Mac68K`)
)

// Unknown is the profile used when no user agent is available
var Unknown = Profile{Browser: "unknown", Version: "0", OS: "unknown"}

// Detect builds a Profile from a user agent and the optional navigator vendor.
func Detect(userAgent, vendor string) Profile {
	if strings.TrimSpace(userAgent) == "" {
		return Unknown
	}

	p := Profile{
		IsSafari: isSafari(userAgent, vendor),
		IsMobile: mobileRe.MatchString(userAgent),
		IsIOS:    iosRe.MatchString(userAgent),
		Browser:  "unknown",
		Version:  "0",
		OS:       "unknown",
	}

	switch {
	case strings.Contains(userAgent, "Firefox"):
		p.Browser = "Firefox"
		p.Version = firstMatch(userAgent, firefoxVerRe)
	case strings.Contains(userAgent, "Edge") || strings.Contains(userAgent, "Edg/"):
		p.Browser = "Edge"
		p.Version = firstMatch(userAgent, edgeVerRe, edgChromiumRe)
	case strings.Contains(userAgent, "Chrome"):
		p.Browser = "Chrome"
		p.Version = firstMatch(userAgent, chromeVerRe)
	case p.IsSafari:
		p.Browser = "Safari"
		p.Version = firstMatch(userAgent, safariVerRe)
	case strings.Contains(userAgent, "MSIE") || strings.Contains(userAgent, "Trident/"):
		p.Browser = "IE"
		p.Version = firstMatch(userAgent, msieVerRe, tridentVerRe)
	}

	switch {
	case strings.Contains(userAgent, "Windows"):
		p.OS = "Windows"
	case macRe.MatchString(userAgent):
		p.OS = "macOS"
	case p.IsIOS:
		p.OS = "iOS"
	case strings.Contains(userAgent, "Android"):
		p.OS = "Android"
	case strings.Contains(userAgent, "Linux"):
		p.OS = "Linux"
	}

	return p
}

// isSafari matches a "safari" token that is not preceded by chrome or android,
// or an Apple vendor string with a Safari product token.
func isSafari(userAgent, vendor string) bool {
	lower := strings.ToLower(userAgent)
	if idx := strings.Index(lower, "safari"); idx >= 0 {
		prefix := lower[:idx]
		if !strings.Contains(prefix, "chrome") && !strings.Contains(prefix, "android") {
			return true
		}
	}
	return strings.Contains(vendor, "Apple") && safariTokenRe.MatchString(userAgent)
}

func firstMatch(s string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return "0"
}
