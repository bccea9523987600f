package schema

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionEnqueueDedupes(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	added := s.Enqueue("https://example.com/about", "https://example.com/about", "https://example.com/")
	require.Equal(t, 1, added)

	u, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, "https://example.com/", u)
	u, ok = s.Next()
	require.True(t, ok)
	require.Equal(t, "https://example.com/about", u)
	_, ok = s.Next()
	require.False(t, ok)
}

func TestSessionScannedFailedDisjoint(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	s.MarkScanned(PageRef{URL: "https://example.com/"}, nil, nil)
	s.MarkFailed("https://example.com/", errors.New("late failure"))

	require.Len(t, s.ScannedURLs(), 1)
	require.Empty(t, s.FailedURLs())
	require.Len(t, s.Pages(), 1)
}

func TestSessionPagesMatchesVisitCounts(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	s.MarkScanned(PageRef{URL: "https://example.com/"}, nil, nil)
	s.MarkScanned(PageRef{URL: "https://example.com/about"}, nil, nil)
	s.MarkFailed("https://example.com/broken", errors.New("timeout"))

	p := s.Progress()
	require.Equal(t, 2, p.Scanned)
	require.Equal(t, 1, p.Failed)
	require.Len(t, s.Pages(), p.Scanned+p.Failed)
}

func TestSessionFailedPageCarriesError(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	s.MarkFailed("https://example.com/x", errors.New("render timeout"))

	pages := s.Pages()
	require.Len(t, pages, 1)
	require.True(t, pages[0].Failed())
	require.Equal(t, "render timeout", pages[0].Error)
}

func TestSessionProgressPercent(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	s.Enqueue("https://example.com/a", "https://example.com/b", "https://example.com/c")

	u, ok := s.Next()
	require.True(t, ok)
	s.MarkScanned(PageRef{URL: u}, nil, nil)

	p := s.Progress()
	require.Equal(t, 1, p.Scanned)
	require.Equal(t, 3, p.Queued)
	require.InDelta(t, 25.0, p.Percent, 0.01)
}

func TestSessionConcurrentWorkers(t *testing.T) {
	t.Parallel()

	s := NewScanSession("scan-1", "https://example.com/")
	for i := 0; i < 200; i++ {
		s.Enqueue(testURL(i))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				u, ok := s.Next()
				if !ok {
					return
				}
				if len(u)%2 == 0 {
					s.MarkScanned(PageRef{URL: u}, nil, nil)
				} else {
					s.MarkFailed(u, errors.New("boom"))
				}
			}
		}()
	}
	wg.Wait()

	p := s.Progress()
	require.Equal(t, 201, p.Scanned+p.Failed)
	require.Len(t, s.Pages(), 201)
	require.Equal(t, 0, p.Queued)
}

func testURL(i int) string {
	return "https://example.com/page-" + string(rune('a'+i%26)) + "-" + string(rune('0'+i/26))
}
