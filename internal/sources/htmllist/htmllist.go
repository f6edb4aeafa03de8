// Package htmllist implements the html transport: a listing page is
// scraped with CSS selectors (configured per source) into a set of
// candidate items, each pointing at its own detail page.
package htmllist

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"content-harvest/internal/entity"
	"content-harvest/internal/extract"
	"content-harvest/internal/textproc/blocked"
	"content-harvest/internal/textproc/slugutil"
	"content-harvest/internal/timeutil"
	"content-harvest/internal/transport"
)

// DefaultLimit bounds how many candidates a listing page yields when a
// source doesn't configure its own RequestLimit.
const DefaultLimit = 20

// Fetcher scrapes a listing page and its detail pages using a source's
// configured CSS selectors.
type Fetcher struct {
	session   *transport.Session
	extractor *extract.Extractor
}

// New builds an htmllist Fetcher.
func New(session *transport.Session, extractor *extract.Extractor) *Fetcher {
	return &Fetcher{session: session, extractor: extractor}
}

func (f *Fetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	cfg := src.Config
	if cfg == nil || cfg.ItemSelector == "" {
		return nil, &entity.ValueError{Message: "html source " + src.ID + " is missing item_selector configuration"}
	}

	body, err := f.session.Get(ctx, src.URL, transport.FetchOpts{BreakerName: src.ID})
	if err != nil {
		return nil, &entity.FetchError{Message: "listing fetch for " + src.ID, Cause: err}
	}

	text := string(body)
	if pattern := blocked.DetectInterstitial(text); pattern != "" {
		return nil, &entity.BlockedContent{Pattern: pattern}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, &entity.ExtractError{Message: "listing page is not valid html for " + src.ID, Cause: err}
	}

	limit := cfg.RequestLimit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var items []entity.Item
	seen := make(map[string]bool)
	doc.Find(cfg.ItemSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		linkSel := sel
		if cfg.URLSelector != "" {
			if found := sel.Find(cfg.URLSelector).First(); found.Length() > 0 {
				linkSel = found
			}
		} else if found := sel.Find("a").First(); found.Length() > 0 {
			linkSel = found
		}
		href, ok := linkSel.Attr("href")
		if !ok || href == "" {
			return true
		}
		resolved := resolveURL(src.URL, href, cfg.URLPrefix)
		if seen[resolved] {
			return true
		}

		title := strings.TrimSpace(linkSel.Text())
		if cfg.TitleSelector != "" {
			if t := sel.Find(cfg.TitleSelector).First(); t.Length() > 0 {
				title = strings.TrimSpace(t.Text())
			}
		}
		if title == "" {
			return true
		}

		item := entity.BlogItem{Title: title, URL: resolved}
		if cfg.AuthorSelector != "" {
			if a := sel.Find(cfg.AuthorSelector).First(); a.Length() > 0 {
				author := strings.TrimSpace(a.Text())
				item.Author = &author
			}
		}
		if cfg.SummarySelector != "" {
			if s := sel.Find(cfg.SummarySelector).First(); s.Length() > 0 {
				summary := strings.TrimSpace(s.Text())
				item.Summary = &summary
			}
		}
		if cfg.DateSelector != "" {
			if d := sel.Find(cfg.DateSelector).First(); d.Length() > 0 {
				item.PublishedAt = timeutil.ParseDateTimePtr(strings.TrimSpace(d.Text()))
			}
		}

		seen[resolved] = true
		items = append(items, item)
		return len(items) < limit
	})

	if len(items) == 0 {
		return nil, &entity.FetchError{Message: "html listing produced no items for " + src.ID}
	}

	return f.fillDetail(ctx, src, items)
}

// fillDetail fetches and extracts each candidate's own detail page into
// its ContentMarkdown; the listing's snippet stays in Summary.
func (f *Fetcher) fillDetail(ctx context.Context, src entity.Source, items []entity.Item) ([]entity.Item, error) {
	out := make([]entity.Item, 0, len(items))
	for _, raw := range items {
		blog, ok := raw.(entity.BlogItem)
		if !ok {
			out = append(out, raw)
			continue
		}
		markdown, err := f.extractor.FromURL(ctx, blog.URL)
		if err != nil {
			// A single bad detail page doesn't sink the whole source: that
			// candidate is dropped, and the source fails only when no
			// detail page could be extracted.
			continue
		}
		blog.ContentMarkdown = &markdown
		out = append(out, blog)
	}
	if len(out) == 0 {
		return nil, &entity.FetchError{Message: "no html detail pages extractable for " + src.ID}
	}
	return out, nil
}

func resolveURL(base, href, prefix string) string {
	if prefix != "" && !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		href = prefix + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	refURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := baseURL.ResolveReference(refURL)
	return slugutil.NormalizeURL(resolved.String())
}
