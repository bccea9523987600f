package discovery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/schemascope/schemascope/internal/schema"
)

const maxURLLength = 200

// skippedExtensions are binary or asset suffixes that never carry
// structured data worth scanning.
var skippedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".mjs", ".map",
	".pdf", ".zip", ".gz", ".tar", ".dmg", ".exe",
	".woff", ".woff2", ".ttf", ".eot",
	".mp3", ".mp4", ".webm", ".avi",
	".xml", ".json", ".txt",
}

// skippedPathPatterns filter admin surfaces, feeds, and tracking-heavy URLs.
var skippedPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/(wp-admin|wp-login|admin|login|logout|signin|signup|register)(/|$)`),
	regexp.MustCompile(`(?i)/(cart|checkout|account|my-account)(/|$)`),
	regexp.MustCompile(`(?i)/(feed|rss|atom)(/|$)`),
	regexp.MustCompile(`(?i)[?&](utm_[a-z]+|fbclid|gclid|sessionid|sid)=`),
}

// skipHref rejects hrefs before resolution: non-navigational schemes and
// obviously unusable values.
func skipHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "ftp:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// skipURL rejects normalized URLs by extension, path pattern, and length.
func skipURL(normalized string) bool {
	if len(normalized) > maxURLLength {
		return true
	}
	lower := strings.ToLower(normalized)
	pathOnly := lower
	if i := strings.IndexByte(pathOnly, '?'); i >= 0 {
		pathOnly = pathOnly[:i]
	}
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(pathOnly, ext) {
			return true
		}
	}
	for _, pattern := range skippedPathPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// AdmitLinks filters raw hrefs found on fromURL down to normalized,
// same-origin, non-skipped URLs, capped at limit. The crawler uses it to
// bound per-page frontier growth.
func AdmitLinks(origin, fromURL string, hrefs []string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, href := range hrefs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if skipHref(href) {
			continue
		}
		normalized, err := schema.ResolveRef(fromURL, href)
		if err != nil {
			continue
		}
		if !schema.SameOrigin(origin, normalized) || skipURL(normalized) {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// extractLinks pulls anchor hrefs out of rendered HTML. An empty document
// yields no links; parse errors are swallowed because link discovery is
// best-effort.
func extractLinks(html string) []string {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}
