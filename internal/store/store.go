package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/storage"
)

const (
	// indexObject is where the rolling index lives in the blob store.
	indexObject = "index.json"
	// maxIndexEntries bounds the rolling index; older scans age out but
	// their result documents remain retrievable by scan_id.
	maxIndexEntries = 100
)

// ErrScanNotFound signals that no result exists for the requested scan_id.
var ErrScanNotFound = errors.New("scan not found")

// ResultStore persists scan results through a blob storage provider and
// keeps the rolling index consistent. Index updates are serialized by a
// mutex; result documents themselves are immutable once written.
type ResultStore struct {
	provider storage.Provider
	logger   *zap.Logger

	mu sync.Mutex // guards read-modify-write of the index
}

// NewResultStore wires a result store onto a provider.
func NewResultStore(provider storage.Provider, logger *zap.Logger) *ResultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultStore{provider: provider, logger: logger}
}

func resultObject(scanID string) string {
	return fmt.Sprintf("scans/%s.json", scanID)
}

// Save writes the result document and prepends its entry to the rolling
// index, trimming the index to its maximum size.
func (s *ResultStore) Save(ctx context.Context, res ScanResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	uri, err := s.provider.Put(ctx, resultObject(res.ScanID), data)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	s.logger.Info("scan result stored",
		zap.String("scan_id", res.ScanID),
		zap.String("uri", uri),
		zap.Int("bytes", len(data)),
	)

	if err := s.updateIndex(ctx, indexEntry(res)); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return nil
}

// Load retrieves one result document by scan id.
func (s *ResultStore) Load(ctx context.Context, scanID string) (ScanResult, error) {
	data, err := s.provider.Get(ctx, resultObject(scanID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ScanResult{}, ErrScanNotFound
		}
		return ScanResult{}, fmt.Errorf("load result: %w", err)
	}
	var res ScanResult
	if err := json.Unmarshal(data, &res); err != nil {
		return ScanResult{}, fmt.Errorf("decode result %s: %w", scanID, err)
	}
	return res, nil
}

// Index returns the rolling index, newest scan first. A store with no
// completed scans yields an empty slice.
func (s *ResultStore) Index(ctx context.Context) ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndex(ctx)
}

func (s *ResultStore) loadIndex(ctx context.Context) ([]IndexEntry, error) {
	data, err := s.provider.Get(ctx, indexObject)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return []IndexEntry{}, nil
		}
		return nil, fmt.Errorf("load index: %w", err)
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return entries, nil
}

func (s *ResultStore) updateIndex(ctx context.Context, entry IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	// Re-running a scan replaces its previous row instead of duplicating it.
	filtered := entries[:0]
	for _, e := range entries {
		if e.ScanID != entry.ScanID {
			filtered = append(filtered, e)
		}
	}
	entries = append([]IndexEntry{entry}, filtered...)
	if len(entries) > maxIndexEntries {
		entries = entries[:maxIndexEntries]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if _, err := s.provider.Put(ctx, indexObject, data); err != nil {
		return fmt.Errorf("store index: %w", err)
	}
	return nil
}
