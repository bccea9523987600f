package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schemascope/schemascope/internal/analyzer"
	"github.com/schemascope/schemascope/internal/schema"
	"github.com/schemascope/schemascope/internal/store"
)

// MockScanService is a mock implementation of the ScanService interface.
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Analyze(ctx context.Context, rawURL string) (store.ScanResult, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(store.ScanResult), args.Error(1)
}

func (m *MockScanService) StartScan(ctx context.Context, rawURL string, opts analyzer.Options) (string, error) {
	args := m.Called(ctx, rawURL, opts)
	return args.String(0), args.Error(1)
}

func (m *MockScanService) Progress(ctx context.Context, scanID string) (analyzer.ScanProgress, error) {
	args := m.Called(ctx, scanID)
	return args.Get(0).(analyzer.ScanProgress), args.Error(1)
}

func (m *MockScanService) Result(ctx context.Context, scanID string) (store.ScanResult, error) {
	args := m.Called(ctx, scanID)
	return args.Get(0).(store.ScanResult), args.Error(1)
}

func (m *MockScanService) RecentScans(ctx context.Context) ([]store.IndexEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.IndexEntry), args.Error(1)
}

func (m *MockScanService) Stop(scanID string) bool {
	args := m.Called(scanID)
	return args.Bool(0)
}

func doRequest(t *testing.T, svc ScanService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(svc, nil, time.Minute)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	svc := new(MockScanService)

	rec := doRequest(t, svc, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// Exactly one JSON document: a panic after the handler has written
	// (e.g. an uninitialized collector in the metrics middleware) would
	// make the recover middleware append a second one.
	dec := json.NewDecoder(rec.Body)
	var payload map[string]string
	require.NoError(t, dec.Decode(&payload))
	require.Equal(t, "ok", payload["status"])
	require.False(t, dec.More())

	rec = doRequest(t, svc, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Analyze", mock.Anything, "https://example.com").Return(store.ScanResult{
		ScanID: "scan-1",
		URL:    "https://example.com",
		Status: schema.StatusComplete,
	}, nil)

	rec := doRequest(t, svc, http.MethodPost, "/analyze", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		ScanID  string           `json:"scan_id"`
		Results store.ScanResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "scan-1", payload.ScanID)
	require.Equal(t, schema.StatusComplete, payload.Results.Status)
	svc.AssertExpectations(t)
}

func TestAnalyzeValidation(t *testing.T) {
	svc := new(MockScanService)

	rec := doRequest(t, svc, http.MethodPost, "/analyze", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, svc, http.MethodPost, "/analyze", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "url is required")
}

func TestScanSiteEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("StartScan", mock.Anything, "https://example.com", analyzer.Options{
		MaxPages:     10,
		CrawlDelay:   250 * time.Millisecond,
		SkipSitemaps: true,
	}).Return("scan-7", nil)

	body := `{
		"start_url": "https://example.com",
		"options": {"max_pages": 10, "crawl_delay_ms": 250, "include_sitemaps": false}
	}`
	rec := doRequest(t, svc, http.MethodPost, "/scan-site", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "scan-7", payload["scan_id"])
	require.Equal(t, "processing", payload["status"])
	svc.AssertExpectations(t)
}

func TestScanSiteValidation(t *testing.T) {
	svc := new(MockScanService)

	rec := doRequest(t, svc, http.MethodPost, "/scan-site", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "start_url is required")
}

func TestProgressEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Progress", mock.Anything, "scan-1").Return(analyzer.ScanProgress{
		Status: schema.StatusProcessing,
		Progress: schema.Progress{
			Scanned: 3,
			Failed:  1,
			Queued:  6,
			Percent: 40,
		},
	}, nil)

	rec := doRequest(t, svc, http.MethodGet, "/progress/scan-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload analyzer.ScanProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, schema.StatusProcessing, payload.Status)
	require.Equal(t, 3, payload.Progress.Scanned)
}

func TestProgressNotFound(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Progress", mock.Anything, "missing").
		Return(analyzer.ScanProgress{}, store.ErrScanNotFound)

	rec := doRequest(t, svc, http.MethodGet, "/progress/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultsEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Result", mock.Anything, "scan-1").Return(store.ScanResult{
		ScanID: "scan-1",
		Status: schema.StatusComplete,
	}, nil)

	rec := doRequest(t, svc, http.MethodGet, "/results/scan-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload store.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "scan-1", payload.ScanID)
}

func TestResultsNotFound(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Result", mock.Anything, "missing").
		Return(store.ScanResult{}, store.ErrScanNotFound)

	rec := doRequest(t, svc, http.MethodGet, "/results/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "scan not found")
}

func TestRecentScansEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("RecentScans", mock.Anything).Return([]store.IndexEntry{
		{ScanID: "scan-2", URL: "https://example.com", Status: schema.StatusComplete, Score: 75},
		{ScanID: "scan-1", URL: "https://example.org", Status: schema.StatusFailed},
	}, nil)

	rec := doRequest(t, svc, http.MethodGet, "/scans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Scans []store.IndexEntry `json:"scans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Scans, 2)
	require.Equal(t, "scan-2", payload.Scans[0].ScanID)
}

func TestStopScanEndpoint(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Stop", "scan-1").Return(true)

	rec := doRequest(t, svc, http.MethodPost, "/scans/scan-1/stop", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "stopping")
	svc.AssertExpectations(t)
}

func TestStopScanNotRunning(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Stop", "missing").Return(false)

	rec := doRequest(t, svc, http.MethodPost, "/scans/missing/stop", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "no scan in progress")
}
