// Package agent implements the agent transport: sources whose content
// only renders after client-side JavaScript runs (an email-archive iframe,
// a JS-gated page) are driven through an external "agent-browser" CLI via
// a four-step open/wait/eval/close subprocess protocol, one session per run.
package agent

import (
	"context"
	"fmt"
	"html"
	"strings"

	mdconv "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"content-harvest/internal/entity"
)

// Driver abstracts the agent-browser subprocess so tests can substitute a
// fake without shelling out.
type Driver interface {
	// Run executes one agent-browser step (open/wait/eval/close) scoped to
	// session and returns its decoded JSON object payload, or nil if the
	// step produced no JSON output.
	Run(ctx context.Context, session string, args ...string) (map[string]any, error)
}

// EvalScript is the JS evaluated against the opened page to pull the
// last-email iframe's srcdoc out of the DOM.
const EvalScript = `(() => { const iframe = document.querySelector('iframe'); ` +
	`return iframe ? { srcdoc: iframe.getAttribute('srcdoc') } : null; })()`

// Fetcher drives one agent-transport source end to end.
type Fetcher struct {
	driver Driver
}

// New builds an agent Fetcher against driver.
func New(driver Driver) *Fetcher {
	return &Fetcher{driver: driver}
}

func (f *Fetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	session := fmt.Sprintf("%s-%s", src.ID, fctx.RunID)

	if _, err := f.driver.Run(ctx, session, "open", src.URL); err != nil {
		return nil, &entity.FetchError{Message: "agent open failed for " + src.ID, Cause: err}
	}
	if _, err := f.driver.Run(ctx, session, "wait", "2000"); err != nil {
		return nil, &entity.FetchError{Message: "agent wait failed for " + src.ID, Cause: err}
	}
	payload, err := f.driver.Run(ctx, session, "eval", EvalScript)
	closeErr := closeQuietly(ctx, f.driver, session)
	if err != nil {
		return nil, &entity.FetchError{Message: "agent eval failed for " + src.ID, Cause: err}
	}
	if closeErr != nil {
		// A failed close doesn't invalidate content we already have, so its
		// error is dropped.
		_ = closeErr
	}

	srcdocRaw, _ := payload["srcdoc"].(string)
	if srcdocRaw == "" {
		return nil, &entity.FetchError{Message: "agent iframe srcdoc missing for " + src.ID}
	}
	iframeHTML := html.UnescapeString(srcdocRaw)

	contentHTML, title := extractBody(iframeHTML)
	normalized := normalizeEmailHTML(contentHTML)
	markdown := ""
	if normalized != "" {
		if rendered, convErr := mdconv.ConvertString(normalized); convErr == nil {
			markdown = cleanupMarkdown(rendered)
		}
	}

	publishedAt := fctx.Now
	issueURL := fmt.Sprintf("%s?issue=%s", src.URL, publishedAt.Format("2006-01-02"))
	if title == "" {
		title = src.Name
	}

	item := entity.BlogItem{
		Title:           title,
		URL:             issueURL,
		PublishedAt:     &publishedAt,
		ContentMarkdown: &markdown,
	}
	return []entity.Item{item}, nil
}

func closeQuietly(ctx context.Context, driver Driver, session string) error {
	_, err := driver.Run(ctx, session, "close")
	return err
}

func extractBody(iframeHTML string) (contentHTML, title string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(iframeHTML))
	if err != nil {
		return iframeHTML, ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	if body := doc.Find("body").First(); body.Length() > 0 {
		if bodyHTML, err := goquery.OuterHtml(body); err == nil {
			return bodyHTML, title
		}
	}
	return iframeHTML, title
}

func normalizeEmailHTML(contentHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return contentHTML
	}
	doc.Find("script, style, noscript, meta, head, img").Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		style = strings.ToLower(style)
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") || strings.Contains(style, "max-height:0") {
			s.Remove()
		}
	})
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	html, err := doc.Find("body").First().Html()
	if err != nil {
		return contentHTML
	}
	return html
}

var tableRuleCutoff = 4

func cleanupMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if isTableRule(trimmed) || isPipeSeparator(trimmed) {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	cleaned = trimPreamble(cleaned)
	return collapseBlankLines(cleaned)
}

func isTableRule(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	return strings.HasPrefix(s, "|") && strings.HasSuffix(s, "|") && strings.Count(s, "|") > tableRuleCutoff
}

func isPipeSeparator(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "|") && strings.HasSuffix(s, "|") {
		return strings.TrimSpace(strings.ReplaceAll(s, "|", "")) == ""
	}
	return false
}

func trimPreamble(lines []string) []string {
	for i, line := range lines {
		lowered := strings.ToLower(line)
		if strings.HasPrefix(lowered, "hey ") || strings.HasPrefix(lowered, "your daily briefing") {
			return lines[i:]
		}
	}
	return lines
}

func collapseBlankLines(lines []string) string {
	var out []string
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
			blank = false
			continue
		}
		if !blank {
			out = append(out, "")
		}
		blank = true
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
