// Package database archives scan history rows in Postgres. The archive is
// an optional audit trail alongside the blob result store; scans run fine
// without it.
package database

import (
	"context"
	"errors"
	"time"
)

// ErrScanNotFound signals that no archived row exists for the scan id.
var ErrScanNotFound = errors.New("scan row not found")

// ScanRow is one archived scan in the scan_history table.
type ScanRow struct {
	ScanID       string    `db:"scan_id"`
	URL          string    `db:"url"`
	Status       string    `db:"status"`
	Score        int       `db:"score"`
	Pages        int       `db:"pages"`
	Records      int       `db:"records"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	ResultURI    string    `db:"result_uri"`
	ErrorMessage *string   `db:"error_message"`
}

// Archive is the common interface for the scan history layer. A real
// Postgres implementation runs in production and a no-op stands in when no
// DSN is configured.
type Archive interface {
	// RecordScan upserts the row for a finished scan.
	RecordScan(ctx context.Context, row ScanRow) error
	// GetScan loads one archived row or returns ErrScanNotFound.
	GetScan(ctx context.Context, scanID string) (ScanRow, error)
	// ListScans returns recent rows, newest first.
	ListScans(ctx context.Context, limit, offset int) ([]ScanRow, error)
	// Close releases the underlying connection pool.
	Close()
}

// NoOpArchive performs no operations. Used when scan history persistence
// is disabled.
type NoOpArchive struct{}

// RecordScan for NoOpArchive does nothing.
func (NoOpArchive) RecordScan(_ context.Context, _ ScanRow) error { return nil }

// GetScan for NoOpArchive always reports the row as missing.
func (NoOpArchive) GetScan(_ context.Context, _ string) (ScanRow, error) {
	return ScanRow{}, ErrScanNotFound
}

// ListScans for NoOpArchive returns an empty history.
func (NoOpArchive) ListScans(_ context.Context, _, _ int) ([]ScanRow, error) {
	return nil, nil
}

// Close for NoOpArchive does nothing.
func (NoOpArchive) Close() {}
