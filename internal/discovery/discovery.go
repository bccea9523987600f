// Package discovery seeds the crawl frontier. Four independent producers run
// best-effort: seed-page links, sitemap XML, robots.txt sitemap directives,
// and a static list of common content paths. No producer failure is fatal.
package discovery

import (
	"context"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/schema"
)

// Config controls discovery behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxSitemapURLs int
	CommonPaths    []string
	SitemapPaths   []string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxSitemapURLs <= 0 {
		c.MaxSitemapURLs = 500
	}
	if len(c.CommonPaths) == 0 {
		c.CommonPaths = defaultCommonPaths
	}
	if len(c.SitemapPaths) == 0 {
		c.SitemapPaths = defaultSitemapPaths
	}
	return c
}

// defaultCommonPaths are appended to every discovery result unconditionally.
var defaultCommonPaths = []string{
	"/about",
	"/about-us",
	"/contact",
	"/services",
	"/products",
	"/blog",
	"/team",
	"/faq",
}

// defaultSitemapPaths are the conventional sitemap locations, tried in order.
var defaultSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/sitemap1.xml",
}

// Discoverer expands a seed URL into a crawl frontier.
type Discoverer struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Discoverer.
func New(cfg Config, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{cfg: cfg.withDefaults(), logger: logger}
}

// Discover combines all four producers, deduplicating by normalized URL and
// keeping only same-origin results. seedHTML is the seed page's rendered DOM
// and may be empty when rendering it failed; discovery still proceeds with
// the remaining methods.
func (d *Discoverer) Discover(ctx context.Context, seedURL, seedHTML string) []string {
	origin, err := schema.Origin(seedURL)
	if err != nil {
		d.logger.Warn("discovery skipped: bad seed url", zap.String("seed", seedURL), zap.Error(err))
		return nil
	}

	found := mapset.NewThreadUnsafeSet[string]()
	collect := func(method string, urls []string) {
		added := 0
		for _, raw := range urls {
			normalized, ok := d.admit(origin, seedURL, raw)
			if !ok {
				continue
			}
			if found.Add(normalized) {
				added++
			}
		}
		d.logger.Debug("discovery method finished",
			zap.String("method", method),
			zap.Int("added", added),
		)
	}

	collect("links", extractLinks(seedHTML))
	collect("sitemap", d.discoverSitemaps(ctx, origin))
	collect("robots", d.discoverFromRobots(ctx, origin))
	collect("common_paths", d.commonPathURLs(origin))

	out := found.ToSlice()
	sort.Strings(out)
	return out
}

// admit normalizes a candidate and applies the same-origin and skip-pattern
// filters. The seed itself is excluded; the crawler already owns it.
func (d *Discoverer) admit(origin, seedURL, raw string) (string, bool) {
	if skipHref(raw) {
		return "", false
	}
	normalized, err := schema.ResolveRef(seedURL, raw)
	if err != nil {
		return "", false
	}
	if !schema.SameOrigin(origin, normalized) {
		return "", false
	}
	if normalized == seedURL || skipURL(normalized) {
		return "", false
	}
	return normalized, true
}

func (d *Discoverer) commonPathURLs(origin string) []string {
	out := make([]string, 0, len(d.cfg.CommonPaths))
	for _, p := range d.cfg.CommonPaths {
		out = append(out, origin+p)
	}
	return out
}
