// Package blocked detects two distinct failure signatures in fetched
// content: short "interstitial" pages (bot checks, consent walls) and
// longer placeholder content left behind by sites that gate the real
// article behind a signup.
package blocked

import (
	"regexp"
	"strings"
	"unicode"
)

var interstitialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you can.?t perform that action at this time`),
	regexp.MustCompile(`(?i)attention required`),
	regexp.MustCompile(`(?i)checking your browser before accessing`),
	regexp.MustCompile(`(?i)enable javascript and cookies to continue`),
	regexp.MustCompile(`(?i)please enable javascript`),
	regexp.MustCompile(`(?i)access denied`),
	regexp.MustCompile(`(?i)verify you are human`),
}

// DetectInterstitial checks short extracted text against known bot-check
// and consent-wall phrasing. It only looks at content short enough to
// plausibly BE an interstitial (under 120 words / 1200 characters); longer
// content is assumed to be real even if it happens to contain one of these
// phrases in passing. Returns the matched phrase, or "" if nothing matched.
func DetectInterstitial(markdown string) string {
	if markdown == "" {
		return ""
	}
	text := strings.Join(strings.Fields(markdown), " ")
	if text == "" {
		return ""
	}
	wordCount := len(strings.Fields(text))
	if wordCount > 120 || len(text) > 1200 {
		return ""
	}
	if m := matchAny(text); m != "" {
		return m
	}
	return matchAny(toASCII(text))
}

func matchAny(text string) string {
	for _, p := range interstitialPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func toASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPlaceholder checks the first 800 characters of content for the
// signatures a paywalled newsletter archive leaves behind instead of the
// real article: an empty markdown table row, a "[Signup]" prefix, or a
// bare "|" line.
func IsPlaceholder(content string) bool {
	preview := content
	if len(preview) > 800 {
		preview = preview[:800]
	}
	if strings.Contains(preview, "|  |") {
		return true
	}
	if strings.HasPrefix(strings.TrimLeft(preview, " \t\n\r"), "[Signup]") {
		return true
	}
	for _, line := range strings.Split(preview, "\n") {
		if strings.TrimSpace(line) == "|" {
			return true
		}
	}
	return false
}
