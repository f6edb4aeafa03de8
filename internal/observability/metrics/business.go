package metrics

import "time"

// RecordHTTPRequest records an HTTP request with its metadata.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordSourcesTotal updates the gauge of enabled sources.
func RecordSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordSourceRun records one source's run: how many items its fetcher
// returned, how many were newly stored vs. already-archived duplicates, and
// how long the fetch-through-store step took.
func RecordSourceRun(sourceID string, fetched, stored, duplicates int, duration time.Duration) {
	ItemsFetchedTotal.WithLabelValues(sourceID).Add(float64(fetched))
	ItemsStoredTotal.WithLabelValues(sourceID).Add(float64(stored))
	ItemsDuplicateTotal.WithLabelValues(sourceID).Add(float64(duplicates))
	SourceFetchDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
}

// RecordSourceError records a source failure by kind: "fetch", "extract",
// "blocked", or "store".
func RecordSourceError(sourceID, errorType string) {
	SourceFetchErrors.WithLabelValues(sourceID, errorType).Inc()
}

// RecordIndexOperation records the duration of a named sqlite index
// operation (e.g. "upsert", "rebuild", "query_by_source").
func RecordIndexOperation(operation string, duration time.Duration) {
	IndexQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
