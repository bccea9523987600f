// Package metrics exposes Prometheus collectors for the scan service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scanPagesTotal             *prometheus.CounterVec
	scanRecordsTotal           *prometheus.CounterVec
	scanExtractionErrorsTotal  prometheus.Counter
	scansTotal                 *prometheus.CounterVec
	scanActiveWorkers          prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scanPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemascope_pages_total",
				Help: "Total number of pages visited, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scanRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemascope_records_total",
				Help: "Total number of structured-data records accepted, labeled by site.",
			},
			[]string{"site"},
		)

		scanExtractionErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "schemascope_extraction_errors_total",
				Help: "Total structured-data blocks that failed to parse.",
			},
		)

		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemascope_scans_total",
				Help: "Total number of scans finished, labeled by status.",
			},
			[]string{"status"},
		)

		scanActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "schemascope_active_workers",
				Help: "Number of crawl workers currently rendering a page.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for one visit outcome
// ("scanned" or "failed").
func ObservePage(site, outcome string) {
	scanPagesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveRecords adds accepted record and extraction-error counts for a page.
func ObserveRecords(site string, accepted, parseErrors int) {
	if accepted > 0 {
		scanRecordsTotal.WithLabelValues(SanitizeSite(site)).Add(float64(accepted))
	}
	if parseErrors > 0 {
		scanExtractionErrorsTotal.Add(float64(parseErrors))
	}
}

// ObserveScan increments the scan counter for the given terminal status.
func ObserveScan(status string) {
	scansTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scanActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scanActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
