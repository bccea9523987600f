// Package crawler drains a scan session's URL frontier with a bounded
// worker pool, rendering each page and feeding extracted records back
// into the session.
package crawler

import (
	"context"

	"github.com/schemascope/schemascope/internal/renderer"
	"github.com/schemascope/schemascope/internal/schema"
)

// Renderer loads a URL in a browser context and returns the rendered page.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (renderer.Page, error)
	Close(ctx context.Context) error
}

// Discoverer expands a seed URL into an initial frontier.
type Discoverer interface {
	Discover(ctx context.Context, seedURL, seedHTML string) []string
}

// Extractor parses raw structured-data blocks into records.
type Extractor interface {
	Extract(blocks []string, page schema.PageRef) ([]schema.SchemaRecord, []schema.ExtractionError)
}
