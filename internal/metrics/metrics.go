package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_store_queries_total",
			Help: "Total number of persistent store operations",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagdex_store_query_duration_seconds",
			Help:    "Persistent store operation duration in seconds, retries included",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_store_retries_total",
			Help: "Total number of retries caused by transient store contention",
		},
		[]string{"operation"},
	)
)

// Metadata service metrics
var (
	ChangesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_changes_published_total",
			Help: "Total number of change events published",
		},
		[]string{"entity", "reason"},
	)

	FilesTracked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagdex_files_tracked_total",
			Help: "Total number of files persisted by folder tracking",
		},
	)

	TrackedFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tagdex_tracked_folders",
			Help: "Number of currently tracked folders",
		},
	)

	ThumbnailsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_thumbnails_generated_total",
			Help: "Total number of thumbnail generation attempts",
		},
		[]string{"status"}, // "ok", "skipped"
	)
)

// Filesystem listing metrics
var (
	ListRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_fs_list_retry_attempts_total",
			Help: "Total number of filesystem listing retry attempts",
		},
		[]string{"operation"},
	)

	ListFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_fs_list_failures_total",
			Help: "Total number of filesystem listings that failed after retries",
		},
		[]string{"operation"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagdex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
