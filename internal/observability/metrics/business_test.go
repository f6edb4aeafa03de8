package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		status   string
		duration time.Duration
	}{
		{name: "ok", method: "GET", path: "/healthz", status: "200", duration: 5 * time.Millisecond},
		{name: "not found", method: "GET", path: "/missing", status: "404", duration: 2 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordHTTPRequest(tt.method, tt.path, tt.status, tt.duration)
			})
		})
	}
}

func TestRecordSourcesTotal(t *testing.T) {
	for _, count := range []int{0, 10, 100} {
		assert.NotPanics(t, func() {
			RecordSourcesTotal(count)
		})
	}
}

func TestRecordSourceRun(t *testing.T) {
	tests := []struct {
		name       string
		sourceID   string
		fetched    int
		stored     int
		duplicates int
		duration   time.Duration
	}{
		{name: "new items", sourceID: "hn", fetched: 10, stored: 8, duplicates: 2, duration: 2 * time.Second},
		{name: "all duplicates", sourceID: "blog-a", fetched: 5, stored: 0, duplicates: 5, duration: time.Second},
		{name: "empty run", sourceID: "blog-b", fetched: 0, stored: 0, duplicates: 0, duration: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordSourceRun(tt.sourceID, tt.fetched, tt.stored, tt.duplicates, tt.duration)
			})
		})
	}
}

func TestRecordSourceError(t *testing.T) {
	tests := []struct {
		sourceID  string
		errorType string
	}{
		{sourceID: "hn", errorType: "fetch"},
		{sourceID: "blog-a", errorType: "extract"},
		{sourceID: "blog-b", errorType: "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordSourceError(tt.sourceID, tt.errorType)
			})
		})
	}
}

func TestRecordIndexOperation(t *testing.T) {
	tests := []struct {
		operation string
		duration  time.Duration
	}{
		{operation: "upsert", duration: 10 * time.Millisecond},
		{operation: "rebuild", duration: 500 * time.Millisecond},
		{operation: "query_by_source", duration: 2 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordIndexOperation(tt.operation, tt.duration)
			})
		})
	}
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordHTTPRequest("GET", "/healthz", "200", 5*time.Millisecond)
		RecordSourcesTotal(10)
		RecordSourceRun("hn", 10, 8, 2, 2*time.Second)
		RecordSourceError("hn", "fetch")
		RecordIndexOperation("rebuild", 500*time.Millisecond)
	})
}
