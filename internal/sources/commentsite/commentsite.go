// Package commentsite implements the shared shape of link-aggregator sites
// that expose a seed list of story ids, a per-story item endpoint, and a
// child-comment-id traversal (Hacker News and Lobsters-shaped APIs): fetch
// a seed set, rank by comment count, then BFS a bounded number of comments
// per surviving story.
package commentsite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"content-harvest/internal/entity"
	"content-harvest/internal/transport"
)

const (
	defaultSeedCount  = 20
	defaultFinalCount = 10
	defaultQueueLimit = 20
)

// Strategy parameterizes one site's endpoints so Fetcher can drive any
// firebase-style comment-tree API, not just Hacker News.
type Strategy struct {
	// ListURL returns the seed list of story ids (a JSON array of numbers).
	ListURL string
	// ItemURLTemplate is formatted with a story/comment id via fmt.Sprintf("%d").
	ItemURLTemplate string
	// DiscussionURLTemplate is formatted the same way for the human-facing
	// discussion page link.
	DiscussionURLTemplate string
	SeedCount             int
	FinalCount            int
	QueueLimit            int
}

type apiItem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Score       *int   `json:"score"`
	Descendants *int   `json:"descendants"`
	Time        *int64 `json:"time"`
	Text        string `json:"text"`
	Kids        []int  `json:"kids"`
}

// Fetcher drives one comment-tree style aggregation source.
type Fetcher struct {
	session    *transport.Session
	strategies map[string]Strategy
}

// New builds a Fetcher. strategies maps source id to its Strategy since
// the same Fetcher instance serves every comment-tree source in the
// registry.
func New(session *transport.Session, strategies map[string]Strategy) *Fetcher {
	return &Fetcher{session: session, strategies: strategies}
}

func (f *Fetcher) Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error) {
	strat, ok := f.strategies[src.ID]
	if !ok {
		return nil, &entity.ValueError{Message: "no comment-site strategy registered for " + src.ID}
	}
	if strat.SeedCount == 0 {
		strat.SeedCount = defaultSeedCount
	}
	if strat.FinalCount == 0 {
		strat.FinalCount = defaultFinalCount
	}
	if strat.QueueLimit == 0 {
		strat.QueueLimit = defaultQueueLimit
	}

	var ids []int
	if err := f.getJSON(ctx, src.ID, strat.ListURL, &ids); err != nil {
		return nil, &entity.FetchError{Message: "seed list fetch for " + src.ID, Cause: err}
	}
	if len(ids) > strat.SeedCount {
		ids = ids[:strat.SeedCount]
	}

	type candidate struct {
		item entity.AggregationItem
		kids []int
	}
	var candidates []candidate
	for _, id := range ids {
		var payload apiItem
		if err := f.getJSON(ctx, src.ID, fmt.Sprintf(strat.ItemURLTemplate, id), &payload); err != nil {
			continue
		}
		if payload.Type != "story" || payload.Title == "" {
			continue
		}
		discussionURL := fmt.Sprintf(strat.DiscussionURLTemplate, id)
		storyURL := payload.URL
		if storyURL == "" {
			storyURL = discussionURL
		}
		item := entity.AggregationItem{
			Title:         payload.Title,
			URL:           storyURL,
			PublishedAt:   unixPtr(payload.Time),
			DiscussionURL: &discussionURL,
			Score:         payload.Score,
			CommentsCount: payload.Descendants,
		}
		if payload.By != "" {
			item.Author = &payload.By
		}
		candidates = append(candidates, candidate{item: item, kids: payload.Kids})
	}
	if len(candidates) == 0 {
		return nil, &entity.FetchError{Message: "comment-site list empty for " + src.ID}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return commentsCount(candidates[i].item) > commentsCount(candidates[j].item)
	})
	if len(candidates) > strat.FinalCount {
		candidates = candidates[:strat.FinalCount]
	}

	out := make([]entity.Item, 0, len(candidates))
	for rank, c := range candidates {
		rankVal := rank + 1
		item := c.item
		item.Rank = &rankVal
		item.Comments = f.fetchComments(ctx, src.ID, strat, c.kids)
		out = append(out, item)
	}
	return out, nil
}

// fetchComments performs a bounded breadth-first walk of the comment tree
// rooted at rootIDs, stopping once QueueLimit comments have been collected
// regardless of how much of the tree remains unvisited.
func (f *Fetcher) fetchComments(ctx context.Context, sourceID string, strat Strategy, rootIDs []int) []entity.AggregationComment {
	var comments []entity.AggregationComment
	queue := append([]int{}, rootIDs...)
	for len(queue) > 0 && len(comments) < strat.QueueLimit {
		id := queue[0]
		queue = queue[1:]

		var payload apiItem
		if err := f.getJSON(ctx, sourceID, fmt.Sprintf(strat.ItemURLTemplate, id), &payload); err != nil {
			continue
		}
		if payload.Type != "comment" {
			continue
		}
		text := "[deleted]"
		if payload.Text != "" {
			text = stripHTML(payload.Text)
		}
		comment := entity.AggregationComment{Text: text, CreatedAt: unixPtr(payload.Time)}
		if payload.By != "" {
			comment.Author = &payload.By
		}
		comments = append(comments, comment)

		for _, kid := range payload.Kids {
			if len(comments)+len(queue) >= strat.QueueLimit {
				break
			}
			queue = append(queue, kid)
		}
	}
	return comments
}

func (f *Fetcher) getJSON(ctx context.Context, breakerName, url string, out any) error {
	body, err := f.session.Get(ctx, url, transport.FetchOpts{BreakerName: breakerName})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func stripHTML(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return htmlText
	}
	return strings.TrimSpace(doc.Text())
}

func unixPtr(seconds *int64) *time.Time {
	if seconds == nil {
		return nil
	}
	t := time.Unix(*seconds, 0).UTC()
	return &t
}

func commentsCount(item entity.AggregationItem) int {
	if item.CommentsCount == nil {
		return 0
	}
	return *item.CommentsCount
}
