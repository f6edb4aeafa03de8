// Package metrics provides centralized Prometheus metrics for the harvester:
// what each source produced on its last run, how long extraction and the
// sqlite index take, and the worker's health/metrics HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track the worker's health/metrics server request patterns.
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Harvest metrics track per-source ingest activity.
var (
	// SourcesTotal tracks the number of enabled sources in the registry.
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvest_sources_total",
			Help: "Total number of enabled sources",
		},
	)

	// ItemsFetchedTotal counts items a source's fetcher returned, before
	// dedup against the existing manifest/snapshot.
	ItemsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_items_fetched_total",
			Help: "Total number of items returned by a source's fetcher",
		},
		[]string{"source_id"},
	)

	// ItemsStoredTotal counts items actually written to the filesystem store
	// (new archive rows or refilled placeholder content).
	ItemsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_items_stored_total",
			Help: "Total number of items written to storage",
		},
		[]string{"source_id"},
	)

	// ItemsDuplicateTotal counts fetched items whose URL was already in the
	// source's manifest; an item refilled over placeholder content counts
	// here as well as in ItemsStoredTotal.
	ItemsDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_items_duplicate_total",
			Help: "Total number of items skipped as already archived",
		},
		[]string{"source_id"},
	)

	// SourceFetchDuration measures one source's fetch-through-store duration.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_source_fetch_duration_seconds",
			Help:    "Time taken to fetch and store one source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// SourceFetchErrors counts a source's failures by error kind (fetch,
	// extract, blocked, store).
	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_source_fetch_errors_total",
			Help: "Total number of source fetch errors",
		},
		[]string{"source_id", "error_type"},
	)

	// IndexQueryDuration measures sqlite index operations (upsert, rebuild,
	// the three query shapes) by operation name.
	IndexQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_index_query_duration_seconds",
			Help:    "Duration of sqlite index operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
