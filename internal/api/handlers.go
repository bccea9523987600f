package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/schemascope/schemascope/internal/analyzer"
	"github.com/schemascope/schemascope/internal/schema"
	"github.com/schemascope/schemascope/internal/store"
)

// ScanService is the analyzer surface the HTTP layer consumes.
type ScanService interface {
	Analyze(ctx context.Context, rawURL string) (store.ScanResult, error)
	StartScan(ctx context.Context, rawURL string, opts analyzer.Options) (string, error)
	Progress(ctx context.Context, scanID string) (analyzer.ScanProgress, error)
	Result(ctx context.Context, scanID string) (store.ScanResult, error)
	RecentScans(ctx context.Context) ([]store.IndexEntry, error)
	Stop(scanID string) bool
}

type scanOptions struct {
	MaxPages        int   `json:"max_pages"`
	CrawlDelayMs    int   `json:"crawl_delay_ms"`
	IncludeSitemaps *bool `json:"include_sitemaps"`
}

func (o scanOptions) toAnalyzer() analyzer.Options {
	return analyzer.Options{
		MaxPages:     o.MaxPages,
		CrawlDelay:   time.Duration(o.CrawlDelayMs) * time.Millisecond,
		SkipSitemaps: o.IncludeSitemaps != nil && !*o.IncludeSitemaps,
	}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type scanSiteRequest struct {
	StartURL string      `json:"start_url"`
	Options  scanOptions `json:"options"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"scan_id": result.ScanID,
		"results": result,
	})
}

func (s *Server) scanSite(w http.ResponseWriter, r *http.Request) {
	var req scanSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.StartURL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "start_url is required")
		return
	}

	scanID, err := s.analyzer.StartScan(r.Context(), req.StartURL, req.Options.toAnalyzer())
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
		"scan_id": scanID,
		"status":  string(schema.StatusProcessing),
	})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scan_id")
	prog, err := s.analyzer.Progress(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(s.logger, w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(s.logger, w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, prog)
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scan_id")
	result, err := s.analyzer.Result(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(s.logger, w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(s.logger, w, http.StatusInternalServerError, "failed to load results")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) stopScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scan_id")
	if !s.analyzer.Stop(scanID) {
		writeError(s.logger, w, http.StatusNotFound, "no scan in progress")
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
		"scan_id": scanID,
		"status":  "stopping",
	})
}

func (s *Server) recentScans(w http.ResponseWriter, r *http.Request) {
	entries, err := s.analyzer.RecentScans(r.Context())
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to load scan index")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"scans": entries})
}
