package crawler

import "time"

const (
	defaultMaxPages       = 25
	defaultMaxConcurrency = 4
	defaultCrawlDelay     = 500 * time.Millisecond
	defaultRenderTimeout  = 30 * time.Second
	defaultLinksPerPage   = 30

	// How long an idle worker waits before re-checking the frontier.
	idlePoll = 50 * time.Millisecond
)

// Options bounds a single crawl.
type Options struct {
	// MaxPages caps visited pages (scanned plus failed).
	MaxPages int
	// MaxConcurrency caps simultaneous page renders.
	MaxConcurrency int
	// CrawlDelay is the pause each worker takes between its page visits.
	// Zero disables the pause; negative values fall back to the default.
	CrawlDelay time.Duration
	// RenderTimeout bounds a single page render.
	RenderTimeout time.Duration
	// LinksPerPage caps how many same-origin links one page may enqueue.
	LinksPerPage int
	// SkipDiscovery disables sitemap/robots frontier seeding. In-page
	// links are still followed; combine with MaxPages to restrict the
	// crawl further.
	SkipDiscovery bool
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = defaultMaxConcurrency
	}
	if o.CrawlDelay < 0 {
		o.CrawlDelay = defaultCrawlDelay
	}
	if o.RenderTimeout <= 0 {
		o.RenderTimeout = defaultRenderTimeout
	}
	if o.LinksPerPage <= 0 {
		o.LinksPerPage = defaultLinksPerPage
	}
	return o
}
