// Package metrics exposes Prometheus collectors for the scraper
// service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal           *prometheus.CounterVec
	scrapeDurationSeconds  *prometheus.HistogramVec
	cacheLookupsTotal      *prometheus.CounterVec
	batchWriteSize         *prometheus.HistogramVec
	skippedRowsTotal       *prometheus.CounterVec
	noticesPublishedTotal  prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call more than
// once.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raceboard_scrapes_total",
				Help: "Total scrape operations, labeled by type and outcome.",
			},
			[]string{"type", "outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raceboard_scrape_duration_seconds",
				Help:    "Histogram of scrape latencies, labeled by type.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"type"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raceboard_cache_lookups_total",
				Help: "Total cache lookups, labeled by result (hit or miss).",
			},
			[]string{"result"},
		)

		batchWriteSize = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raceboard_batch_write_size",
				Help:    "Number of documents per persisted batch, labeled by collection.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"collection"},
		)

		skippedRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raceboard_skipped_rows_total",
				Help: "Table rows dropped during extraction, labeled by reason.",
			},
			[]string{"reason"},
		)

		noticesPublishedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "raceboard_notices_published_total",
				Help: "Notification messages published for new notices.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one scrape operation and its duration.
func ObserveScrape(scrapeType, outcome string, duration time.Duration) {
	scrapesTotal.WithLabelValues(scrapeType, outcome).Inc()
	scrapeDurationSeconds.WithLabelValues(scrapeType).Observe(duration.Seconds())
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveBatchWrite records the size of a persisted batch.
func ObserveBatchWrite(collection string, size int) {
	batchWriteSize.WithLabelValues(collection).Observe(float64(size))
}

// ObserveSkippedRow counts a table row dropped during extraction.
func ObserveSkippedRow(reason string) {
	skippedRowsTotal.WithLabelValues(reason).Inc()
}

// ObserveNoticePublished counts one published notification.
func ObserveNoticePublished() {
	noticesPublishedTotal.Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}
