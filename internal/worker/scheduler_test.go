package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-harvest/internal/entity"
	"content-harvest/internal/ingest"
	"content-harvest/internal/sources"
	"content-harvest/internal/storage"
)

type stubFetcher struct {
	items []entity.Item
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	return f.items, f.err
}

func TestScheduler_RunOnce_RecordsSuccess(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	src := entity.Source{ID: "blog-a", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true}
	content := "body"
	registry := sources.NewRegistry([]entity.Source{src}, map[entity.Transport]sources.Fetcher{
		entity.TransportRSS: &stubFetcher{items: []entity.Item{
			entity.BlogItem{URL: "https://example.com/1", Title: "one", ContentMarkdown: &content},
		}},
	})

	orchestrator := ingest.New(registry, store, nil, slog.Default())
	cfg := DefaultConfig()
	cfg.RunTimeout = 5 * time.Second

	sched := NewScheduler(orchestrator, cfg, testMetrics, nil, slog.Default())
	sched.runOnce()

	counted := testutil.ToFloat64(testMetrics.JobRunsTotal.WithLabelValues("success"))
	assert.Equal(t, float64(1), counted)
}

func TestRunOnceSynchronously_ReturnsReport(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)

	src := entity.Source{ID: "blog-a", Kind: entity.KindBlog, Transport: entity.TransportRSS, Enabled: true}
	content2 := "body"
	registry := sources.NewRegistry([]entity.Source{src}, map[entity.Transport]sources.Fetcher{
		entity.TransportRSS: &stubFetcher{items: []entity.Item{
			entity.BlogItem{URL: "https://example.com/1", Title: "one", ContentMarkdown: &content2},
		}},
	})
	orchestrator := ingest.New(registry, store, nil, slog.Default())

	report, err := RunOnceSynchronously(context.Background(), orchestrator, ingest.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, report.Successes, 1)
	assert.Empty(t, report.Failures)
}
