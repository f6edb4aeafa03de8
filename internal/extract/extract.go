// Package extract turns a fetched HTML document into clean Markdown: it
// runs Mozilla's Readability algorithm to isolate the article body, then
// converts the result to Markdown and rejects anything that looks blocked
// or too short to be a real article.
package extract

import (
	"bytes"
	"context"
	"io"
	"net/url"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"

	"content-harvest/internal/entity"
	"content-harvest/internal/textproc"
	"content-harvest/internal/textproc/blocked"
	"content-harvest/internal/transport"
)

// MinContentLength is the floor below which extracted content is rejected
// as too short to be a real article, mirroring the original implementation.
const MinContentLength = 20

// Extractor fetches a URL and reduces it to normalized Markdown.
type Extractor struct {
	session *transport.Session
}

// New builds an Extractor that fetches through session.
func New(session *transport.Session) *Extractor {
	return &Extractor{session: session}
}

// FromURL fetches pageURL and returns its extracted, normalized Markdown.
func (e *Extractor) FromURL(ctx context.Context, pageURL string) (string, error) {
	body, err := e.session.Get(ctx, pageURL, transport.FetchOpts{BreakerName: "extract"})
	if err != nil {
		return "", &entity.ExtractError{Message: "fetch failed for " + pageURL, Cause: err}
	}
	return e.FromHTML(pageURL, string(body))
}

// FromHTML runs the extraction pipeline over already-fetched HTML. pageURL
// is used only to resolve relative links and is not refetched.
func (e *Extractor) FromHTML(pageURL, html string) (string, error) {
	if len(bytes.TrimSpace([]byte(html))) == 0 {
		return "", &entity.ExtractError{Message: "empty html"}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, rerr := readability.FromReader(io.NopCloser(bytes.NewReader([]byte(html))), parsed)
	contentHTML := html
	if rerr == nil && article.Content != "" {
		contentHTML = article.Content
	}

	markdown, err := md.ConvertString(contentHTML)
	if err != nil {
		return "", &entity.ExtractError{Message: "markdown conversion failed", Cause: err}
	}

	cleaned := textproc.NormalizeMarkdown(markdown)
	if len(cleaned) < MinContentLength {
		return "", &entity.ExtractError{Message: "extracted content too short"}
	}
	if pattern := blocked.DetectInterstitial(cleaned); pattern != "" {
		return "", &entity.BlockedContent{Pattern: pattern}
	}
	return cleaned, nil
}
