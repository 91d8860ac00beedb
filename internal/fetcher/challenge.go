package fetcher

import (
	"net/http"
	"strings"
)

// Challenge kinds reported by DetectChallenge.
const (
	ChallengeCloudflare = "cloudflare"
	ChallengeTurnstile  = "turnstile"
	ChallengeReCaptcha  = "recaptcha"
	ChallengeHCaptcha   = "hcaptcha"
)

// DetectChallenge reports whether a response is an anti-bot interstitial
// rather than the requested page. It returns the challenge kind, or "" for
// an ordinary page. Captcha widgets only count on 403/429/503 responses;
// Cloudflare's "checking your browser" page is recognized on any status.
func DetectChallenge(status int, html string) string {
	htmlLower := strings.ToLower(html)

	if strings.Contains(htmlLower, "cf-browser-verification") ||
		strings.Contains(htmlLower, "/cdn-cgi/challenge-platform/") ||
		(strings.Contains(htmlLower, "<title>just a moment...</title>") && strings.Contains(htmlLower, "cloudflare")) {
		return ChallengeCloudflare
	}

	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return ""
	}

	switch {
	case strings.Contains(htmlLower, "cf-turnstile"):
		return ChallengeTurnstile
	case strings.Contains(htmlLower, "g-recaptcha") || strings.Contains(htmlLower, "recaptcha/api.js"):
		return ChallengeReCaptcha
	case strings.Contains(htmlLower, "h-captcha") || strings.Contains(htmlLower, "hcaptcha.com"):
		return ChallengeHCaptcha
	case strings.Contains(htmlLower, "attention required! | cloudflare"):
		return ChallengeCloudflare
	}
	return ""
}
