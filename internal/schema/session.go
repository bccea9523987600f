package schema

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// ScanStatus is the lifecycle state of a scan session.
type ScanStatus string

// Scan status values reported by the progress and results endpoints.
const (
	StatusProcessing ScanStatus = "processing"
	StatusComplete   ScanStatus = "complete"
	StatusFailed     ScanStatus = "failed"
)

// Progress is a point-in-time snapshot of crawl advancement.
type Progress struct {
	Scanned int     `json:"scanned"`
	Failed  int     `json:"failed"`
	Queued  int     `json:"queued"`
	Percent float64 `json:"percent"`
}

// ScanSession is the aggregate root for one crawl. It owns the frontier and
// the scanned/failed bookkeeping. All mutation happens through its methods,
// which are safe for concurrent use by crawl workers; once the crawl engine
// returns, the session is read-only.
type ScanSession struct {
	ScanID    string
	BaseURL   string
	StartedAt time.Time

	mu       sync.Mutex
	frontier []string
	enqueued mapset.Set[string]
	scanned  mapset.Set[string]
	failed   mapset.Set[string]
	pages    []PageRef
	records  []SchemaRecord
	errors   []ExtractionError
	stopped  bool
}

// NewScanSession creates a session rooted at baseURL. The base URL must
// already be normalized.
func NewScanSession(scanID, baseURL string) *ScanSession {
	s := &ScanSession{
		ScanID:    scanID,
		BaseURL:   baseURL,
		StartedAt: time.Now().UTC(),
		enqueued:  mapset.NewThreadUnsafeSet[string](),
		scanned:   mapset.NewThreadUnsafeSet[string](),
		failed:    mapset.NewThreadUnsafeSet[string](),
	}
	s.enqueue(baseURL)
	return s
}

// Enqueue adds normalized URLs to the frontier, skipping anything already
// enqueued during this scan. It returns how many URLs were actually added.
func (s *ScanSession) Enqueue(urls ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, u := range urls {
		if s.enqueue(u) {
			added++
		}
	}
	return added
}

func (s *ScanSession) enqueue(u string) bool {
	if u == "" || !s.enqueued.Add(u) {
		return false
	}
	s.frontier = append(s.frontier, u)
	return true
}

// Next pops the next unvisited URL from the frontier. The second return value
// is false when the frontier is empty.
func (s *ScanSession) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.frontier) > 0 {
		u := s.frontier[0]
		s.frontier = s.frontier[1:]
		if s.scanned.Contains(u) || s.failed.Contains(u) {
			continue
		}
		return u, true
	}
	return "", false
}

// MarkScanned records a successful page visit along with the records
// extracted from it. A URL transitions into scanned at most once and never if
// it already failed.
func (s *ScanSession) MarkScanned(page PageRef, records []SchemaRecord, errs []ExtractionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanned.Contains(page.URL) || s.failed.Contains(page.URL) {
		return
	}
	s.scanned.Add(page.URL)
	s.pages = append(s.pages, page)
	s.records = append(s.records, records...)
	s.errors = append(s.errors, errs...)
}

// MarkFailed records a failed page visit. The error string becomes part of the
// page's PageRef; the crawl continues.
func (s *ScanSession) MarkFailed(rawURL string, visitErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanned.Contains(rawURL) || s.failed.Contains(rawURL) {
		return
	}
	s.failed.Add(rawURL)
	s.pages = append(s.pages, PageRef{
		URL:       rawURL,
		ScannedAt: time.Now().UTC(),
		Error:     visitErr.Error(),
	})
}

// Visited reports whether the URL has already been scanned or failed.
func (s *ScanSession) Visited(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned.Contains(rawURL) || s.failed.Contains(rawURL)
}

// VisitedCount returns scanned + failed.
func (s *ScanSession) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned.Cardinality() + s.failed.Cardinality()
}

// Stop raises the session stop flag. In-flight renders finish naturally;
// workers observe the flag at the top of their next iteration.
func (s *ScanSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Stopped reports whether the stop flag has been raised.
func (s *ScanSession) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Progress returns a consistent snapshot of crawl advancement. Percent is
// computed against every URL known to the session so far.
func (s *ScanSession) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := s.scanned.Cardinality() + s.failed.Cardinality()
	total := done + len(s.frontier)
	p := Progress{
		Scanned: s.scanned.Cardinality(),
		Failed:  s.failed.Cardinality(),
		Queued:  len(s.frontier),
	}
	if total > 0 {
		p.Percent = float64(done) / float64(total) * 100
	}
	return p
}

// Pages returns a copy of the per-URL visit results.
func (s *ScanSession) Pages() []PageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PageRef, len(s.pages))
	copy(out, s.pages)
	return out
}

// Records returns a copy of every accepted record across the scan.
func (s *ScanSession) Records() []SchemaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SchemaRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ExtractionErrors returns a copy of per-block parse failures.
func (s *ScanSession) ExtractionErrors() []ExtractionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExtractionError, len(s.errors))
	copy(out, s.errors)
	return out
}

// ScannedURLs returns the set of successfully scanned URLs.
func (s *ScanSession) ScannedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned.ToSlice()
}

// FailedURLs returns the set of failed URLs.
func (s *ScanSession) FailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed.ToSlice()
}
