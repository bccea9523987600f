// Package analyzer orchestrates scans end to end: crawl, graph build,
// scoring, persistence, and completion events.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/crawler"
	"github.com/schemascope/schemascope/internal/database"
	"github.com/schemascope/schemascope/internal/graph"
	"github.com/schemascope/schemascope/internal/metrics"
	"github.com/schemascope/schemascope/internal/publisher"
	"github.com/schemascope/schemascope/internal/schema"
	"github.com/schemascope/schemascope/internal/score"
	"github.com/schemascope/schemascope/internal/store"
)

// Crawler drains a scan session's frontier.
type Crawler interface {
	Crawl(ctx context.Context, session *schema.ScanSession, opts crawler.Options) error
}

// IDGenerator produces scan IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// ErrScanNotFound mirrors store.ErrScanNotFound for callers that only
// import this package.
var ErrScanNotFound = store.ErrScanNotFound

// Options narrows one scan relative to the configured defaults.
type Options struct {
	// MaxPages caps visited pages; zero keeps the configured default.
	MaxPages int
	// CrawlDelay overrides the per-worker pause; negative keeps the default.
	CrawlDelay time.Duration
	// SkipSitemaps disables sitemap/robots frontier seeding.
	SkipSitemaps bool
}

// Deps wires an Analyzer. Archive and Events may be the no-op
// implementations; everything else is required.
type Deps struct {
	Crawler  Crawler
	Results  *store.ResultStore
	Archive  database.Archive
	Events   publisher.Publisher
	IDs      IDGenerator
	Clock    Clock
	Logger   *zap.Logger
	Topic    string
	Defaults crawler.Options
}

// Analyzer runs scans and answers progress/result queries. Full site scans
// run asynchronously; single-page analysis runs inline.
type Analyzer struct {
	crawler  Crawler
	builder  *graph.Builder
	scorer   *score.Scorer
	results  *store.ResultStore
	archive  database.Archive
	events   publisher.Publisher
	ids      IDGenerator
	clock    Clock
	logger   *zap.Logger
	topic    string
	defaults crawler.Options
	registry *Registry
}

// New assembles an Analyzer from its dependencies.
func New(deps Deps) *Analyzer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	archive := deps.Archive
	if archive == nil {
		archive = database.NoOpArchive{}
	}
	events := deps.Events
	if events == nil {
		events = publisher.NoOp{}
	}
	metrics.Init()
	return &Analyzer{
		crawler:  deps.Crawler,
		builder:  graph.NewBuilder(logger),
		scorer:   score.New(logger),
		results:  deps.Results,
		archive:  archive,
		events:   events,
		ids:      deps.IDs,
		clock:    deps.Clock,
		logger:   logger,
		topic:    deps.Topic,
		defaults: deps.Defaults,
		registry: NewRegistry(),
	}
}

// newSession validates the URL and registers a fresh session for it.
func (a *Analyzer) newSession(rawURL string) (*schema.ScanSession, error) {
	normalized, err := schema.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	scanID, err := a.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate scan id: %w", err)
	}
	session := schema.NewScanSession(scanID, normalized)
	a.registry.Put(session)
	return session, nil
}

// crawlOptions merges per-scan options onto the configured defaults.
func (a *Analyzer) crawlOptions(opts Options) crawler.Options {
	merged := a.defaults
	if opts.MaxPages > 0 && (merged.MaxPages <= 0 || opts.MaxPages < merged.MaxPages) {
		merged.MaxPages = opts.MaxPages
	}
	if opts.CrawlDelay > 0 {
		merged.CrawlDelay = opts.CrawlDelay
	}
	merged.SkipDiscovery = opts.SkipSitemaps
	return merged
}

// StartScan kicks off an asynchronous site scan and returns its scan id.
// The scan outlives the request context but still stops on process shutdown.
func (a *Analyzer) StartScan(ctx context.Context, rawURL string, opts Options) (string, error) {
	session, err := a.newSession(rawURL)
	if err != nil {
		return "", err
	}

	scanCtx := context.WithoutCancel(ctx)
	go a.runScan(scanCtx, session, a.crawlOptions(opts))

	return session.ScanID, nil
}

// Analyze runs the single-page variant of the pipeline synchronously:
// discovery is skipped and only the given URL is rendered.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (store.ScanResult, error) {
	session, err := a.newSession(rawURL)
	if err != nil {
		return store.ScanResult{}, err
	}

	opts := a.defaults
	opts.MaxPages = 1
	opts.CrawlDelay = 0
	opts.SkipDiscovery = true

	return a.runScan(ctx, session, opts), nil
}

// runScan executes a crawl to completion and finalizes its result.
func (a *Analyzer) runScan(ctx context.Context, session *schema.ScanSession, opts crawler.Options) store.ScanResult {
	err := a.crawler.Crawl(ctx, session, opts)

	status := schema.StatusComplete
	errMsg := ""
	if err != nil {
		status = schema.StatusFailed
		errMsg = err.Error()
		a.logger.Error("scan failed",
			zap.String("scan_id", session.ScanID),
			zap.String("url", session.BaseURL),
			zap.Error(err),
		)
	}

	result := a.assemble(session, status, errMsg)
	a.finalize(ctx, result)
	return result
}

// assemble builds the result document from the session's records.
func (a *Analyzer) assemble(session *schema.ScanSession, status schema.ScanStatus, errMsg string) store.ScanResult {
	records := session.Records()
	g := a.builder.Build(records)
	consistency := a.scorer.Score(records, g)

	return store.ScanResult{
		ScanID:           session.ScanID,
		URL:              session.BaseURL,
		Status:           status,
		Error:            errMsg,
		StartedAt:        session.StartedAt,
		FinishedAt:       a.clock.Now(),
		Pages:            session.Pages(),
		Records:          records,
		ExtractionErrors: session.ExtractionErrors(),
		Graph:            store.NewGraphView(g),
		Consistency:      consistency,
	}
}

// finalize persists the result, archives the history row, publishes the
// completion event, and releases the registry entry. Persistence failures
// leave the session registered so the result stays queryable from memory.
func (a *Analyzer) finalize(ctx context.Context, result store.ScanResult) {
	metrics.ObserveScan(string(result.Status))

	if err := a.results.Save(ctx, result); err != nil {
		a.logger.Error("persist scan result",
			zap.String("scan_id", result.ScanID),
			zap.Error(err),
		)
		return
	}

	row := database.ScanRow{
		ScanID:     result.ScanID,
		URL:        result.URL,
		Status:     string(result.Status),
		Score:      result.Consistency.Score,
		Pages:      len(result.Pages),
		Records:    len(result.Records),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		ResultURI:  fmt.Sprintf("scans/%s.json", result.ScanID),
	}
	if result.Error != "" {
		row.ErrorMessage = &result.Error
	}
	if err := a.archive.RecordScan(ctx, row); err != nil {
		a.logger.Warn("archive scan row",
			zap.String("scan_id", result.ScanID),
			zap.Error(err),
		)
	}

	if a.topic != "" {
		event := publisher.ScanEvent{
			ScanID:     result.ScanID,
			URL:        result.URL,
			Status:     string(result.Status),
			Pages:      len(result.Pages),
			Score:      result.Consistency.Score,
			FinishedAt: result.FinishedAt,
		}
		if _, err := a.events.Publish(ctx, a.topic, event); err != nil {
			a.logger.Warn("publish scan event",
				zap.String("scan_id", result.ScanID),
				zap.Error(err),
			)
		}
	}

	a.registry.Remove(result.ScanID)
	a.logger.Info("scan finalized",
		zap.String("scan_id", result.ScanID),
		zap.String("status", string(result.Status)),
		zap.Int("pages", len(result.Pages)),
		zap.Int("score", result.Consistency.Score),
	)
}

// ScanProgress is the progress endpoint payload.
type ScanProgress struct {
	Status   schema.ScanStatus `json:"status"`
	Progress schema.Progress   `json:"progress"`
}

// Progress reports crawl advancement for a scan, live sessions first.
func (a *Analyzer) Progress(ctx context.Context, scanID string) (ScanProgress, error) {
	if session, ok := a.registry.Get(scanID); ok {
		return ScanProgress{
			Status:   schema.StatusProcessing,
			Progress: session.Progress(),
		}, nil
	}

	result, err := a.results.Load(ctx, scanID)
	if err != nil {
		return ScanProgress{}, err
	}
	scanned, failed := 0, 0
	for _, p := range result.Pages {
		if p.Failed() {
			failed++
		} else {
			scanned++
		}
	}
	return ScanProgress{
		Status: result.Status,
		Progress: schema.Progress{
			Scanned: scanned,
			Failed:  failed,
			Percent: 100,
		},
	}, nil
}

// Result returns the scan's result document. In-flight scans are answered
// with a live snapshot so callers never get a 404 for a scan that exists.
// Scans whose blob document is gone (bucket retention) are answered from
// their archived summary row.
func (a *Analyzer) Result(ctx context.Context, scanID string) (store.ScanResult, error) {
	result, err := a.results.Load(ctx, scanID)
	if err == nil {
		return result, nil
	}
	if session, ok := a.registry.Get(scanID); ok {
		return a.assemble(session, schema.StatusProcessing, ""), nil
	}
	if row, archiveErr := a.archive.GetScan(ctx, scanID); archiveErr == nil {
		return resultFromRow(row), nil
	}
	return store.ScanResult{}, err
}

// recentScanLimit mirrors the blob index cap.
const recentScanLimit = 100

// RecentScans lists scan history, newest first. The SQL archive is
// preferred since the blob index rolls over; the index answers when no
// archive is configured or it has no rows yet.
func (a *Analyzer) RecentScans(ctx context.Context) ([]store.IndexEntry, error) {
	rows, err := a.archive.ListScans(ctx, recentScanLimit, 0)
	if err != nil {
		a.logger.Warn("list archived scans", zap.Error(err))
	}
	if err != nil || len(rows) == 0 {
		return a.results.Index(ctx)
	}
	entries := make([]store.IndexEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, indexEntryFromRow(row))
	}
	return entries, nil
}

// indexEntryFromRow converts an archived row to a listing entry.
func indexEntryFromRow(row database.ScanRow) store.IndexEntry {
	return store.IndexEntry{
		ScanID:     row.ScanID,
		URL:        row.URL,
		Status:     schema.ScanStatus(row.Status),
		Score:      row.Score,
		Pages:      row.Pages,
		FinishedAt: row.FinishedAt,
	}
}

// resultFromRow rebuilds a summary-only result from an archived row. The
// page, record, and graph detail lived in the blob document; the status,
// score, and timings survive in Postgres.
func resultFromRow(row database.ScanRow) store.ScanResult {
	res := store.ScanResult{
		ScanID:     row.ScanID,
		URL:        row.URL,
		Status:     schema.ScanStatus(row.Status),
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	if row.ErrorMessage != nil {
		res.Error = *row.ErrorMessage
	}
	res.Consistency.Score = row.Score
	return res
}

// Stop raises the stop flag on a live scan and reports whether one was
// found. In-flight renders finish naturally; already-finished scans are
// not affected.
func (a *Analyzer) Stop(scanID string) bool {
	session, ok := a.registry.Get(scanID)
	if !ok {
		return false
	}
	session.Stop()
	return true
}
