// Package feed implements the rss transport: RSS/Atom feeds fetched and
// parsed with gofeed, mirroring the original make_rss_source/fetch_rss
// pair but expressed as a Fetcher.
package feed

import (
	"bytes"
	"context"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mmcdole/gofeed"

	"content-harvest/internal/entity"
	"content-harvest/internal/textproc"
	"content-harvest/internal/transport"
)

// Fetcher fetches and parses RSS/Atom feeds through a shared session.
type Fetcher struct {
	session *transport.Session
}

// New builds a feed Fetcher that reads through session.
func New(session *transport.Session) *Fetcher {
	return &Fetcher{session: session}
}

// Fetch retrieves src.URL as a feed and returns one BlogItem per entry
// that has both a title and a link; other entries are skipped.
// An entry's Content field is preferred over Description, matching the
// original feed reader's precedence.
func (f *Fetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	body, err := f.session.Get(ctx, src.URL, transport.FetchOpts{BreakerName: src.ID})
	if err != nil {
		return nil, &entity.FetchError{Message: "feed fetch for " + src.ID, Cause: err}
	}

	parser := gofeed.NewParser()
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &entity.FetchError{Message: "feed parse error for " + src.URL, Cause: err}
	}

	items := make([]entity.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" || entry.Link == "" {
			continue
		}

		contentHTML := entry.Content
		if contentHTML == "" {
			contentHTML = entry.Description
		}
		var contentMarkdown string
		if contentHTML != "" {
			if rendered, convErr := md.ConvertString(contentHTML); convErr == nil {
				contentMarkdown = textproc.NormalizeMarkdown(rendered)
			} else {
				contentMarkdown = contentHTML
			}
		}

		var author *string
		if entry.Author != nil && entry.Author.Name != "" {
			author = &entry.Author.Name
		}
		var summary *string
		if entry.Description != "" {
			summary = &entry.Description
		}

		item := entity.BlogItem{
			Title:           entry.Title,
			URL:             entry.Link,
			Author:          author,
			Summary:         summary,
			ContentMarkdown: &contentMarkdown,
		}
		if entry.PublishedParsed != nil {
			t := *entry.PublishedParsed
			item.PublishedAt = &t
		} else if entry.UpdatedParsed != nil {
			t := *entry.UpdatedParsed
			item.PublishedAt = &t
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, &entity.FetchError{Message: "feed empty for " + src.URL}
	}
	return items, nil
}
