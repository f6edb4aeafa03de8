package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-harvest/internal/entity"
	"content-harvest/internal/sources"
	"content-harvest/internal/storage"
)

type fakeFetcher struct {
	items []entity.Item
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	return f.items, f.err
}

func strPtr(s string) *string { return &s }

func newRegistry(t *testing.T, srcs []entity.Source, fetchers map[entity.Transport]sources.Fetcher) *sources.Registry {
	t.Helper()
	return sources.NewRegistry(srcs, fetchers)
}

func TestOrchestrator_Run_StoresBlogItemsAndRecordsReport(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	src := entity.Source{ID: "blog-a", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true, URL: "https://example.com/feed"}
	registry := newRegistry(t, []entity.Source{src}, map[entity.Transport]sources.Fetcher{
		entity.TransportRSS: &fakeFetcher{items: []entity.Item{
			entity.BlogItem{URL: "https://example.com/1", Title: "first post", ContentMarkdown: strPtr("body one")},
			entity.BlogItem{URL: "https://example.com/2", Title: "second post", ContentMarkdown: strPtr("body two")},
		}},
	})

	orch := New(registry, store, nil, slog.Default())
	report, err := orch.Run(context.Background(), "run-1", Options{Parallelism: 2, RatePerSecond: 100})
	require.NoError(t, err)

	require.Len(t, report.Successes, 1)
	assert.Equal(t, "blog-a", report.Successes[0].SourceID)
	assert.Equal(t, 2, report.Successes[0].ItemsFound)
	assert.Equal(t, 2, report.Successes[0].ItemsStored)
	assert.Empty(t, report.Failures)

	reportPath := filepath.Join(store.RunsDir(), "run-run-1.json")
	assert.FileExists(t, reportPath)
}

func TestOrchestrator_Run_OneSourceFailureDoesNotAbortOthers(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	good := entity.Source{ID: "blog-good", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true, URL: "https://example.com/good"}
	bad := entity.Source{ID: "blog-bad", Kind: entity.KindBlog, Transport: entity.TransportHTML, Enabled: true, URL: "https://example.com/bad",
		Config: &entity.SourceConfig{ItemSelector: ".item"}}

	registry := newRegistry(t, []entity.Source{good, bad}, map[entity.Transport]sources.Fetcher{
		entity.TransportRSS:  &fakeFetcher{items: []entity.Item{entity.BlogItem{URL: "https://example.com/1", Title: "ok", ContentMarkdown: strPtr("x")}}},
		entity.TransportHTML: &fakeFetcher{err: &entity.FetchError{Message: "boom"}},
	})

	orch := New(registry, store, nil, slog.Default())
	report, err := orch.Run(context.Background(), "run-2", DefaultOptions())
	require.NoError(t, err)

	require.Len(t, report.Successes, 1)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "blog-bad", report.Failures[0].SourceID)

	failureLog := filepath.Join(store.RunsDir(), "run-run-2-failures.jsonl")
	assert.FileExists(t, failureLog)
}

func TestOrchestrator_Run_AggregationSourceWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	src := entity.Source{ID: "agg-a", Kind: entity.KindAggregation, Transport: entity.TransportCommentAPI, Enabled: true, URL: "https://example.com/api"}
	registry := newRegistry(t, []entity.Source{src}, map[entity.Transport]sources.Fetcher{
		entity.TransportCommentAPI: &fakeFetcher{items: []entity.Item{
			entity.AggregationItem{Title: "story", URL: "https://example.com/story", Rank: func() *int { i := 1; return &i }()},
		}},
	})

	orch := New(registry, store, nil, slog.Default())
	report, err := orch.Run(context.Background(), "run-3", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, report.Successes, 1)
	assert.Equal(t, 1, report.Successes[0].ItemsStored)

	snapshots, err := os.ReadDir(store.SnapshotsDir("agg-a"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestOrchestrator_Run_SelectsOnlyRequestedSources(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	a := entity.Source{ID: "a", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true, URL: "https://example.com/a"}
	b := entity.Source{ID: "b", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true, URL: "https://example.com/b"}
	registry := newRegistry(t, []entity.Source{a, b}, map[entity.Transport]sources.Fetcher{
		entity.TransportRSS: &fakeFetcher{items: nil},
	})

	orch := New(registry, store, nil, slog.Default())
	report, err := orch.Run(context.Background(), "run-4", Options{Parallelism: 2, RatePerSecond: 100, SourceIDs: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, report.Successes, 1)
	assert.Equal(t, "b", report.Successes[0].SourceID)
}

func TestOrchestrator_Run_UnknownSourceIDErrors(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	registry := newRegistry(t, nil, map[entity.Transport]sources.Fetcher{})

	orch := New(registry, store, nil, slog.Default())
	_, err := orch.Run(context.Background(), "run-5", Options{SourceIDs: []string{"missing"}})
	assert.Error(t, err)
}

func TestIsRunStale_NoHeartbeat(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	stale, err := IsRunStale(store, "nonexistent")
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsRunStale_FreshHeartbeatIsNotStale(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	require.NoError(t, os.MkdirAll(store.RunsDir(), 0o755))
	hb := filepath.Join(store.RunsDir(), "run-r1.heartbeat")
	require.NoError(t, os.WriteFile(hb, []byte(time.Now().Format(time.RFC3339)), 0o644))

	stale, err := IsRunStale(store, "r1")
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsRunStale_OldHeartbeatWithNoReportIsStale(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	require.NoError(t, os.MkdirAll(store.RunsDir(), 0o755))
	hb := filepath.Join(store.RunsDir(), "run-r2.heartbeat")
	require.NoError(t, os.WriteFile(hb, []byte("old"), 0o644))
	old := time.Now().Add(-StaleRunThreshold - time.Minute)
	require.NoError(t, os.Chtimes(hb, old, old))

	stale, err := IsRunStale(store, "r2")
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsRunStale_OldHeartbeatWithReportIsNotStale(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	require.NoError(t, os.MkdirAll(store.RunsDir(), 0o755))
	hb := filepath.Join(store.RunsDir(), "run-r3.heartbeat")
	require.NoError(t, os.WriteFile(hb, []byte("old"), 0o644))
	old := time.Now().Add(-StaleRunThreshold - time.Minute)
	require.NoError(t, os.Chtimes(hb, old, old))

	_, err := store.RecordRun(entity.RunReport{RunID: "r3", StartedAt: time.Now(), FinishedAt: time.Now()})
	require.NoError(t, err)

	stale, err := IsRunStale(store, "r3")
	require.NoError(t, err)
	assert.False(t, stale)
}
