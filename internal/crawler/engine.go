package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/discovery"
	"github.com/schemascope/schemascope/internal/hash/sha256"
	"github.com/schemascope/schemascope/internal/metrics"
	"github.com/schemascope/schemascope/internal/renderer"
	"github.com/schemascope/schemascope/internal/schema"
)

// ErrRendererUnavailable means the crawl cannot start because no
// browser renderer was wired in.
var ErrRendererUnavailable = errors.New("renderer unavailable")

// Engine runs one crawl over a scan session.
type Engine struct {
	renderer   Renderer
	discoverer Discoverer
	extractor  Extractor
	logger     *zap.Logger
}

// NewEngine wires a crawl engine. The discoverer may be nil, in which
// case only explicitly enqueued URLs are visited.
func NewEngine(r Renderer, d Discoverer, x Extractor, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Engine{renderer: r, discoverer: d, extractor: x, logger: logger}
}

// Crawl visits the session's seed page, expands the frontier through
// discovery, then drains it with a worker pool. Per-page failures are
// recorded on the session and never abort the crawl; the only fatal
// conditions are a missing renderer and context cancellation.
func (e *Engine) Crawl(ctx context.Context, session *schema.ScanSession, opts Options) error {
	if e.renderer == nil {
		return ErrRendererUnavailable
	}
	opts = opts.withDefaults()

	start := time.Now()
	e.logger.Info("crawl starting",
		zap.String("scan_id", session.ScanID),
		zap.String("base_url", session.BaseURL),
		zap.Int("max_pages", opts.MaxPages),
		zap.Int("max_concurrency", opts.MaxConcurrency),
	)

	seen := newContentIndex()
	budget := newPageBudget(opts.MaxPages)

	// The seed page is rendered first so its DOM can feed link
	// discovery alongside sitemaps and robots.txt.
	var seedHTML string
	if budget.reserve() {
		if u, ok := session.Next(); ok {
			if page, err := e.visit(ctx, session, u, opts, seen); err == nil {
				seedHTML = page.HTML
			}
		} else {
			budget.release()
		}
	}

	if !opts.SkipDiscovery && e.discoverer != nil && ctx.Err() == nil {
		found := e.discoverer.Discover(ctx, session.BaseURL, seedHTML)
		added := session.Enqueue(found...)
		e.logger.Info("frontier seeded",
			zap.String("scan_id", session.ScanID),
			zap.Int("discovered", len(found)),
			zap.Int("enqueued", added),
		)
	}

	workers := opts.MaxConcurrency
	if queued := session.Progress().Queued; queued < workers {
		workers = queued
	}

	if workers > 0 {
		var active atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.work(ctx, session, opts, seen, budget, &active)
			}()
		}
		wg.Wait()
	}

	prog := session.Progress()
	e.logger.Info("crawl finished",
		zap.String("scan_id", session.ScanID),
		zap.Int("scanned", prog.Scanned),
		zap.Int("failed", prog.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ctx.Err()
}

// work pulls URLs until the frontier is drained. A page-budget slot is
// reserved before each pull so concurrent workers cannot overshoot the
// page cap; the in-flight counter is bumped before the pull so a worker
// that sees an empty frontier can tell whether a peer might still
// enqueue links from a page in flight.
func (e *Engine) work(ctx context.Context, session *schema.ScanSession, opts Options, seen *contentIndex, budget *pageBudget, active *atomic.Int64) {
	for {
		if ctx.Err() != nil || session.Stopped() {
			return
		}
		if !budget.reserve() {
			return
		}

		active.Add(1)
		u, ok := session.Next()
		if !ok {
			budget.release()
			if active.Add(-1) == 0 {
				return
			}
			sleep(ctx, idlePoll)
			continue
		}

		metrics.IncActiveWorkers()
		e.visit(ctx, session, u, opts, seen) //nolint:errcheck // recorded on the session
		metrics.DecActiveWorkers()
		active.Add(-1)

		sleep(ctx, opts.CrawlDelay)
	}
}

// visit renders one page, extracts its records, and enqueues a bounded
// number of same-origin links. Pages whose content fingerprint was
// already seen this crawl count as scanned but are not re-extracted.
func (e *Engine) visit(ctx context.Context, session *schema.ScanSession, rawURL string, opts Options, seen *contentIndex) (renderer.Page, error) {
	renderCtx, cancel := context.WithTimeout(ctx, opts.RenderTimeout)
	defer cancel()

	page, err := e.renderer.Render(renderCtx, rawURL)
	if err != nil {
		session.MarkFailed(rawURL, err)
		metrics.ObservePage(rawURL, "failed")
		e.logger.Warn("page render failed",
			zap.String("scan_id", session.ScanID),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return renderer.Page{}, err
	}

	ref := schema.PageRef{URL: rawURL, Title: page.Title, ScannedAt: time.Now().UTC()}

	if firstURL, dup := seen.record(sha256.Fingerprint([]byte(page.HTML)), rawURL); dup {
		session.MarkScanned(ref, nil, nil)
		metrics.ObservePage(rawURL, "scanned")
		e.logger.Debug("duplicate content skipped",
			zap.String("scan_id", session.ScanID),
			zap.String("url", rawURL),
			zap.String("first_seen", firstURL),
		)
		links := discovery.AdmitLinks(session.BaseURL, rawURL, page.Links, opts.LinksPerPage)
		session.Enqueue(links...)
		return page, nil
	}

	records, errs := e.extractor.Extract(page.SchemaBlocks, ref)
	session.MarkScanned(ref, records, errs)
	metrics.ObservePage(rawURL, "scanned")
	metrics.ObserveRecords(rawURL, len(records), len(errs))

	e.logger.Debug("page scanned",
		zap.String("scan_id", session.ScanID),
		zap.String("url", rawURL),
		zap.Int("records", len(records)),
		zap.Int("extraction_errors", len(errs)),
	)

	links := discovery.AdmitLinks(session.BaseURL, rawURL, page.Links, opts.LinksPerPage)
	session.Enqueue(links...)
	return page, nil
}

// pageBudget hands out render slots. Each visit consumes a slot before
// the frontier pop, so the scanned+failed total can never exceed the
// page cap no matter how many workers run.
type pageBudget struct {
	remaining atomic.Int64
}

func newPageBudget(maxPages int) *pageBudget {
	b := &pageBudget{}
	b.remaining.Store(int64(maxPages))
	return b
}

// reserve claims one slot, reporting false when the budget is spent.
func (b *pageBudget) reserve() bool {
	if b.remaining.Add(-1) < 0 {
		b.remaining.Add(1)
		return false
	}
	return true
}

// release returns an unused slot after an empty frontier pop.
func (b *pageBudget) release() {
	b.remaining.Add(1)
}

// contentIndex maps content fingerprints to the first URL that served
// them, scoped to a single crawl.
type contentIndex struct {
	mu    sync.Mutex
	first map[string]string
}

func newContentIndex() *contentIndex {
	return &contentIndex{first: make(map[string]string)}
}

// record registers the fingerprint and reports whether it was already
// present, along with the URL that introduced it.
func (c *contentIndex) record(digest, rawURL string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if firstURL, ok := c.first[digest]; ok {
		return firstURL, true
	}
	c.first[digest] = rawURL
	return rawURL, false
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
