package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/schemascope/schemascope/internal/schema"
	"github.com/schemascope/schemascope/internal/score"
	"github.com/schemascope/schemascope/internal/storage"
)

func sampleResult(scanID string, finished time.Time) ScanResult {
	return ScanResult{
		ScanID:     scanID,
		URL:        "https://example.com",
		Status:     schema.StatusComplete,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Pages: []schema.PageRef{
			{URL: "https://example.com", Title: "Acme", ScannedAt: finished},
		},
		Records: []schema.SchemaRecord{
			{
				Kind:       "Organization",
				ID:         "schema:org",
				Properties: map[string]any{"name": "Acme", "url": "https://example.com"},
				Source:     schema.PageRef{URL: "https://example.com"},
			},
		},
		Consistency: score.Result{Score: 75},
	}
}

func TestResultStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	ctx := context.Background()

	res := sampleResult("scan-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.Save(ctx, res))

	got, err := s.Load(ctx, "scan-1")
	require.NoError(t, err)
	require.Equal(t, res.ScanID, got.ScanID)
	require.Equal(t, res.Status, got.Status)
	require.Len(t, got.Records, 1)
	require.Equal(t, "Acme", got.Records[0].Properties["name"])
}

func TestResultStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrScanNotFound)
}

func TestResultStore_IndexNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		res := sampleResult(fmt.Sprintf("scan-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Save(ctx, res))
	}

	entries, err := s.Index(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "scan-2", entries[0].ScanID)
	require.Equal(t, "scan-0", entries[2].ScanID)
	require.Equal(t, 75, entries[0].Score)
	require.Equal(t, 1, entries[0].Pages)
}

func TestResultStore_IndexRollsOver(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < maxIndexEntries+10; i++ {
		res := sampleResult(fmt.Sprintf("scan-%d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Save(ctx, res))
	}

	entries, err := s.Index(ctx)
	require.NoError(t, err)
	require.Len(t, entries, maxIndexEntries)
	require.Equal(t, fmt.Sprintf("scan-%d", maxIndexEntries+9), entries[0].ScanID)

	// Aged-out scans remain loadable even though the index dropped them.
	got, err := s.Load(ctx, "scan-0")
	require.NoError(t, err)
	require.Equal(t, "scan-0", got.ScanID)
}

func TestResultStore_RerunReplacesIndexRow(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.Save(ctx, sampleResult("scan-1", base)))
	require.NoError(t, s.Save(ctx, sampleResult("scan-2", base.Add(time.Minute))))
	require.NoError(t, s.Save(ctx, sampleResult("scan-1", base.Add(2*time.Minute))))

	entries, err := s.Index(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "scan-1", entries[0].ScanID)
	require.Equal(t, "scan-2", entries[1].ScanID)
}

func TestResultStore_EmptyIndex(t *testing.T) {
	t.Parallel()

	s := NewResultStore(storage.NewMemoryProvider(), nil)
	entries, err := s.Index(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}
