package jsonapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-harvest/internal/entity"
	"content-harvest/internal/transport"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	session := transport.NewSession(5*time.Second, false)
	t.Cleanup(session.Close)
	return New(session)
}

func TestFetch_MapsBlogKindToBlogItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[{"title":"first post","permalink":"https://example.com/1","published_at":"2026-01-01T00:00:00Z"}]}}`))
	}))
	defer srv.Close()

	src := entity.Source{
		ID: "blog-api", Kind: entity.KindBlog, Transport: entity.TransportAPI, URL: srv.URL,
		Config: &entity.SourceConfig{ItemsPath: "data.items", TitleField: "title", URLField: "permalink", DateField: "published_at"},
	}

	items, err := newTestFetcher(t).Fetch(context.Background(), entity.FetchContext{}, src)
	require.NoError(t, err)
	require.Len(t, items, 1)

	blog, ok := items[0].(entity.BlogItem)
	require.True(t, ok, "expected a BlogItem for a blog-kind source, got %T", items[0])
	assert.Equal(t, "first post", blog.Title)
	assert.Equal(t, "https://example.com/1", blog.URL)
}

func TestFetch_MapsAggregationKindToAggregationItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[{"title":"top story","permalink":"https://example.com/1"}]}}`))
	}))
	defer srv.Close()

	src := entity.Source{
		ID: "agg-api", Kind: entity.KindAggregation, Transport: entity.TransportAPI, URL: srv.URL,
		Config: &entity.SourceConfig{ItemsPath: "data.items", TitleField: "title", URLField: "permalink"},
	}

	items, err := newTestFetcher(t).Fetch(context.Background(), entity.FetchContext{}, src)
	require.NoError(t, err)
	require.Len(t, items, 1)

	agg, ok := items[0].(entity.AggregationItem)
	require.True(t, ok, "expected an AggregationItem for an aggregation-kind source, got %T", items[0])
	assert.Equal(t, "top story", agg.Title)
	assert.Equal(t, 1, *agg.Rank)
}

// TestFetch_ReleaseNotesFallbackURL is E5: a release with no source_url
// synthesizes https://releasebot.io/updates/<vendor>/<product> and titles
// itself "<Product> — <release_number>".
func TestFetch_ReleaseNotesFallbackURL(t *testing.T) {
	payload := `{
		"nodes": [
			{"data": [
				{"releases": 1},
				[2],
				{"product": 3, "release_details": 5},
				{"slug": "widget", "vendor": 4},
				{"slug": "corp"},
				{"release_number": "1.0"}
			]}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := entity.Source{ID: "releasebot", Kind: entity.KindAggregation, Transport: entity.TransportAPI, URL: srv.URL}

	items, err := newTestFetcher(t).Fetch(context.Background(), entity.FetchContext{}, src)
	require.NoError(t, err)
	require.Len(t, items, 1)

	release, ok := items[0].(entity.AggregationItem)
	require.True(t, ok)
	assert.Equal(t, "https://releasebot.io/updates/corp/widget", release.URL)
	assert.Equal(t, "Widget — 1.0", release.Title)
}

func TestFetch_DevaluePayloadMissingReleasesFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nodes":[{"data":[{"other":"stuff"}]}]}`))
	}))
	defer srv.Close()

	src := entity.Source{ID: "releasebot", Kind: entity.KindAggregation, Transport: entity.TransportAPI, URL: srv.URL}

	_, err := newTestFetcher(t).Fetch(context.Background(), entity.FetchContext{}, src)
	require.Error(t, err)
	fe, ok := err.(*entity.FetchError)
	require.True(t, ok)
	assert.Contains(t, fe.Message, "data missing releases")
}
