// Package store persists finished scan results as JSON documents in a blob
// store and maintains a rolling index of recent scans.
package store

import (
	"time"

	"github.com/schemascope/schemascope/internal/graph"
	"github.com/schemascope/schemascope/internal/schema"
	"github.com/schemascope/schemascope/internal/score"
)

// GraphView is the serializable slice of an entity graph kept in results:
// the arena plus summary counts.
type GraphView struct {
	Entities             []*graph.Entity         `json:"entities"`
	Connections          []graph.Connection      `json:"connections"`
	BrokenReferences     []graph.BrokenReference `json:"broken_references"`
	OrphanCount          int                     `json:"orphan_count"`
	CrossPageConnections int                     `json:"cross_page_connections"`
}

// NewGraphView flattens an entity graph for persistence.
func NewGraphView(g *graph.EntityGraph) GraphView {
	if g == nil {
		return GraphView{}
	}
	return GraphView{
		Entities:             g.Entities,
		Connections:          g.Connections,
		BrokenReferences:     g.Broken,
		OrphanCount:          len(g.Orphans()),
		CrossPageConnections: len(g.CrossPageConnections()),
	}
}

// ScanResult is the complete document produced by one scan. It is what the
// results endpoint serves and what gets persisted under scans/<scan_id>.json.
type ScanResult struct {
	ScanID           string                   `json:"scan_id"`
	URL              string                   `json:"url"`
	Status           schema.ScanStatus        `json:"status"`
	Error            string                   `json:"error,omitempty"`
	StartedAt        time.Time                `json:"started_at"`
	FinishedAt       time.Time                `json:"finished_at"`
	Pages            []schema.PageRef         `json:"pages"`
	Records          []schema.SchemaRecord    `json:"records"`
	ExtractionErrors []schema.ExtractionError `json:"extraction_errors,omitempty"`
	Graph            GraphView                `json:"graph"`
	Consistency      score.Result             `json:"consistency"`
}

// IndexEntry is one row of the rolling scan index.
type IndexEntry struct {
	ScanID     string            `json:"scan_id"`
	URL        string            `json:"url"`
	Status     schema.ScanStatus `json:"status"`
	Score      int               `json:"score"`
	Pages      int               `json:"pages"`
	FinishedAt time.Time         `json:"finished_at"`
}

// indexEntry derives the index row for a result.
func indexEntry(res ScanResult) IndexEntry {
	return IndexEntry{
		ScanID:     res.ScanID,
		URL:        res.URL,
		Status:     res.Status,
		Score:      res.Consistency.Score,
		Pages:      len(res.Pages),
		FinishedAt: res.FinishedAt,
	}
}
