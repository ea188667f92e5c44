package links

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultMaxScanLength bounds how much body text is scanned for links.
// Pathologically long bodies (quoted threads, inlined data) are cut off
// here to keep worst-case processing cost predictable.
const DefaultMaxScanLength = 12000

// urlPattern matches http/https URLs up to the next whitespace.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// trailingPunctuation is stripped from URL matches; closing parens,
// periods and commas almost always belong to the surrounding prose.
const trailingPunctuation = ").,"

// wrapperDomains are link-wrapping/redirect services. A wrapped URL is
// noise: the real destination is buried in a query parameter and the
// wrapper itself is meaningless to the reader.
var wrapperDomains = []string{
	"safelinks.protection.outlook.com",
	"urldefense.com",
	"urldefense.proofpoint.com",
	"clicktime.symantec.com",
	"protect-eu.mimecast.com",
}

// socialDomains are excluded only when the same URL occurs more than
// once in the body. A single mention may be meaningful content; repeats
// mark it as signature-block boilerplate.
var socialDomains = []string{
	"linkedin.com",
	"facebook.com",
	"twitter.com",
	"instagram.com",
}

// imageExtensions participate in the signature-image heuristic.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// Extract scans body text for hyperlinks and returns the surviving URLs
// deduplicated and ordered by first appearance. maxLen bounds the
// scanned prefix; values <= 0 select DefaultMaxScanLength. The function
// is pure and deterministic: the same body always yields the same
// sequence.
func Extract(body string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxScanLength
	}
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	matches := urlPattern.FindAllString(body, -1)

	counts := make(map[string]int)
	seen := make(map[string]bool)
	var order []string

	for _, m := range matches {
		u := strings.TrimRight(m, trailingPunctuation)
		if u == "" {
			continue
		}
		counts[u]++
		if !seen[u] {
			seen[u] = true
			order = append(order, u)
		}
	}

	var out []string
	for _, u := range order {
		if excluded(u, counts[u]) {
			continue
		}
		out = append(out, u)
	}

	return out
}

// excluded applies the drop heuristics to a cleaned URL.
func excluded(u string, occurrences int) bool {
	lower := strings.ToLower(u)

	for _, domain := range wrapperDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}

	if strings.Contains(lower, "cid:") {
		return true
	}

	if isSignatureImage(lower) {
		return true
	}

	for _, domain := range socialDomains {
		if strings.Contains(lower, domain) && occurrences > 1 {
			return true
		}
	}

	return false
}

// isSignatureImage reports whether a URL looks like an email signature
// or logo image rather than a content link. Only the path is examined
// so hostnames like logo-cdn.example.com do not trip the heuristic.
func isSignatureImage(lower string) bool {
	target := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		target = u.Path
	}

	image := false
	for _, ext := range imageExtensions {
		if strings.Contains(target, ext) {
			image = true
			break
		}
	}
	if !image {
		return false
	}
	return strings.Contains(target, "signature") || strings.Contains(target, "logo")
}
