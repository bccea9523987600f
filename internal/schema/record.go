// Package schema defines the core data model shared across the scan pipeline:
// structured-data records, page references, and the scan session aggregate.
package schema

import (
	"time"
)

// PageRef identifies one visited URL within a scan. Exactly one PageRef exists
// per normalized URL, whether the visit succeeded or failed.
type PageRef struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
	Error     string    `json:"error,omitempty"`
}

// Failed reports whether the page visit ended in an error.
func (p PageRef) Failed() bool {
	return p.Error != ""
}

// SchemaRecord is a validated structured-data object extracted from a page.
// Records are immutable once created; the graph builder owns them after ingest.
type SchemaRecord struct {
	Kind       string         `json:"kind"`
	ID         string         `json:"id,omitempty"`
	Properties map[string]any `json:"properties"`
	Source     PageRef        `json:"source_page"`
}

// HasID reports whether the record carries a non-empty stable identifier.
func (r SchemaRecord) HasID() bool {
	return r.ID != ""
}

// Name returns the record's display name, falling back through the common
// naming properties used by structured-data vocabularies.
func (r SchemaRecord) Name() string {
	for _, key := range []string{"name", "headline", "title", "legalName"} {
		if v, ok := r.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ExtractionError records a structured-data block that failed to parse. It is
// data, not control flow: the rest of the page is still processed.
type ExtractionError struct {
	Page       string `json:"page"`
	BlockIndex int    `json:"block_index"`
	Message    string `json:"message"`
}
