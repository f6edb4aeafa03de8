// Package jsonapi implements the api transport for simple JSON-list
// sources: fetch one endpoint, walk a dot-separated field path to the item
// array, and map named fields onto a BlogItem or AggregationItem depending
// on the source's kind. Payloads shaped as a devalue reference graph (an
// object with a top-level "nodes" array, the format SvelteKit's
// __data.json endpoints use) go through the release-notes decoder instead
// (§4.3.1): it resolves the graph's references and maps the first node
// whose root carries a releases list onto AggregationItems.
package jsonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"content-harvest/internal/entity"
	"content-harvest/internal/sources/releasedecoder"
	"content-harvest/internal/timeutil"
	"content-harvest/internal/transport"
)

// DefaultLimit bounds how many items a single api-transport fetch returns
// when a source doesn't configure its own RequestLimit.
const DefaultLimit = 10

// releasebotHost is the host releases fall back to when a release carries
// no explicit source_url.
const releasebotHost = "releasebot.io"

// Fetcher fetches and maps a config-driven JSON list endpoint.
type Fetcher struct {
	session *transport.Session
}

// New builds a jsonapi Fetcher that reads through session.
func New(session *transport.Session) *Fetcher {
	return &Fetcher{session: session}
}

func (f *Fetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	body, err := f.session.Get(ctx, src.URL, transport.FetchOpts{BreakerName: src.ID})
	if err != nil {
		return nil, &entity.FetchError{Message: "api fetch for " + src.ID, Cause: err}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &entity.FetchError{Message: "api response not valid json for " + src.ID, Cause: err}
	}

	limit := DefaultLimit
	if src.Config != nil && src.Config.RequestLimit > 0 {
		limit = src.Config.RequestLimit
	}

	if nodes, ok := devalueNodes(payload); ok {
		return f.fetchReleases(nodes, src, limit)
	}

	if src.Config == nil {
		return nil, &entity.ValueError{Message: "api source " + src.ID + " has no selector configuration"}
	}

	items, err := walkPath(payload, src.Config.ItemsPath)
	if err != nil {
		return nil, &entity.FetchError{Message: "api response missing items at " + src.Config.ItemsPath + " for " + src.ID, Cause: err}
	}
	list, ok := items.([]any)
	if !ok {
		return nil, &entity.FetchError{Message: "api items path did not resolve to a list for " + src.ID}
	}

	out := make([]entity.Item, 0, limit)
	for rank, raw := range list {
		if rank >= limit {
			break
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item, ok := f.mapEntry(src, obj, rank+1)
		if !ok {
			continue
		}
		out = append(out, item)
	}

	if len(out) == 0 {
		return nil, &entity.FetchError{Message: "api list empty for " + src.ID}
	}
	return out, nil
}

// mapEntry builds a BlogItem or AggregationItem from one decoded JSON
// object, depending on src.Kind, so a blog-kind api source stores
// BlogItems the orchestrator's persist step can actually type-assert.
func (f *Fetcher) mapEntry(src entity.Source, obj map[string]any, rank int) (entity.Item, bool) {
	title := stringField(obj, src.Config.TitleField)
	url := stringField(obj, src.Config.URLField)
	if title == "" || url == "" {
		return nil, false
	}
	publishedAt := timeutil.ParseDateTimePtr(stringField(obj, src.Config.DateField))
	var author *string
	if a := stringField(obj, src.Config.AuthorField); a != "" {
		author = &a
	}

	if src.Kind == entity.KindBlog {
		return entity.BlogItem{
			Title:       title,
			URL:         url,
			PublishedAt: publishedAt,
			Author:      author,
		}, true
	}

	return entity.AggregationItem{
		Title:       title,
		URL:         url,
		PublishedAt: publishedAt,
		Author:      author,
		Rank:        intPtr(rank),
	}, true
}

// devalueNodes reports whether payload has the SvelteKit "nodes"/"data"
// reference-graph shape, returning its nodes array if so.
func devalueNodes(payload any) ([]any, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	nodes, ok := obj["nodes"].([]any)
	return nodes, ok
}

// fetchReleases resolves each devalue node until it finds the first root
// containing a "releases" list (§4.3.1's decoder), then maps that list
// into AggregationItems.
func (f *Fetcher) fetchReleases(nodes []any, src entity.Source, limit int) ([]entity.Item, error) {
	for _, node := range nodes {
		nodeObj, ok := node.(map[string]any)
		if !ok {
			continue
		}
		data, ok := nodeObj["data"].([]any)
		if !ok || len(data) == 0 {
			continue
		}
		root, ok := releasedecoder.Decode(data).(map[string]any)
		if !ok {
			continue
		}
		releases, ok := root["releases"].([]any)
		if !ok {
			continue
		}
		return releaseItems(releases, limit)
	}
	return nil, &entity.FetchError{Message: "data missing releases"}
}

// releaseItems maps each release's decoded fields onto an AggregationItem,
// synthesizing a fallback URL and title when the upstream payload omits
// them, grounded on the original releasebot adapter's _parse_release.
func releaseItems(releases []any, limit int) ([]entity.Item, error) {
	out := make([]entity.Item, 0, limit)
	for rank, raw := range releases {
		if rank >= limit {
			break
		}
		release, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, parseRelease(release, rank+1))
	}
	if len(out) == 0 {
		return nil, &entity.FetchError{Message: "data missing releases"}
	}
	return out, nil
}

func parseRelease(release map[string]any, rank int) entity.AggregationItem {
	product, _ := release["product"].(map[string]any)
	vendor, _ := product["vendor"].(map[string]any)
	vendorSlug := stringFieldDefault(vendor, "slug", "vendor")
	productSlug := stringFieldDefault(product, "slug", "product")

	details, _ := release["release_details"].(map[string]any)
	releaseNumber := firstNonEmpty(
		stringField(details, "release_number"),
		stringField(details, "release_name"),
		stringField(release, "slug"),
		"Release",
	)

	productName := firstNonEmpty(
		stringField(product, "display_name"),
		stringField(vendor, "display_name"),
		titleFromSlug(productSlug),
	)
	title := productName + " — " + releaseNumber

	url := ""
	if source, ok := release["source"].(map[string]any); ok {
		url = stringField(source, "source_url")
	}
	if url == "" {
		url = fmt.Sprintf("https://%s/updates/%s/%s", releasebotHost, vendorSlug, productSlug)
	}

	publishedAt := firstNonEmpty(stringField(release, "release_date"), stringField(release, "created_at"))

	return entity.AggregationItem{
		Title:       title,
		URL:         url,
		PublishedAt: timeutil.ParseDateTimePtr(publishedAt),
		Rank:        intPtr(rank),
	}
}

// titleFromSlug turns a hyphen/underscore slug into a display title
// ("cool-widget" -> "Cool Widget") for releases whose product carries no
// display_name.
func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// stringFieldDefault returns obj[field] if it's a non-empty string, else fallback.
func stringFieldDefault(obj map[string]any, field, fallback string) string {
	if v := stringField(obj, field); v != "" {
		return v
	}
	return fallback
}

func walkPath(root any, path string) (any, error) {
	if path == "" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path segment %q: not an object", seg)
		}
		next, ok := obj[seg]
		if !ok {
			return nil, fmt.Errorf("path segment %q: missing", seg)
		}
		cur = next
	}
	return cur, nil
}

func stringField(obj map[string]any, field string) string {
	if field == "" {
		return ""
	}
	if v, ok := obj[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intPtr(v int) *int { return &v }
