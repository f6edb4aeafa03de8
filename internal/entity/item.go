package entity

import "time"

// FetchContext carries the run-scoped values every adapter fetch gets: the
// run this fetch belongs to and a fixed "now" so a run's timestamps are
// internally consistent even if it spans minutes. The HTTP session is not
// part of it; each adapter holds its own session.
type FetchContext struct {
	RunID string
	Now   time.Time
}

// Item is implemented by BlogItem and AggregationItem so adapters can return
// a homogeneous slice regardless of source kind.
type Item interface {
	ItemKind() Kind
	ItemURL() string
	ItemTitle() string
}

// BlogItem is a single post from a blog/newsletter-style source.
type BlogItem struct {
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	Author          *string    `json:"author,omitempty"`
	Summary         *string    `json:"summary,omitempty"`
	ContentMarkdown *string    `json:"content_markdown,omitempty"`
}

func (i BlogItem) ItemKind() Kind    { return KindBlog }
func (i BlogItem) ItemURL() string   { return i.URL }
func (i BlogItem) ItemTitle() string { return i.Title }

// AggregationComment is one node in a comment thread attached to an
// AggregationItem, grounded on the original's comment-site adapters which
// recurse into a fixed-depth reply tree.
type AggregationComment struct {
	Author    *string              `json:"author,omitempty"`
	Text      string               `json:"text"`
	CreatedAt *time.Time           `json:"created_at,omitempty"`
	Children  []AggregationComment `json:"children,omitempty"`
}

// AggregationItem is a single story from a link-aggregator style source
// (Hacker News, Lobsters, a release-notes feed).
type AggregationItem struct {
	Title         string               `json:"title"`
	URL           string               `json:"url"`
	PublishedAt   *time.Time           `json:"published_at,omitempty"`
	Author        *string              `json:"author,omitempty"`
	Score         *int                 `json:"score,omitempty"`
	CommentsCount *int                 `json:"comments_count,omitempty"`
	Rank          *int                 `json:"rank,omitempty"`
	DiscussionURL *string              `json:"discussion_url,omitempty"`
	Comments      []AggregationComment `json:"comments,omitempty"`
	Extra         map[string]any       `json:"extra,omitempty"`
}

func (i AggregationItem) ItemKind() Kind    { return KindAggregation }
func (i AggregationItem) ItemURL() string   { return i.URL }
func (i AggregationItem) ItemTitle() string { return i.Title }

// Record is the unified, storage-ready view of one item from any source,
// produced by the orchestrator after extraction.
type Record struct {
	ItemID          string     `json:"item_id,omitempty"`
	SourceID        string     `json:"source_id"`
	SourceName      string     `json:"source_name"`
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Author          *string    `json:"author,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ArchivedAt      time.Time  `json:"archived_at"`
	SnapshotDate    *string    `json:"snapshot_date,omitempty"`
	ContentMarkdown string     `json:"content_markdown,omitempty"`
	DiscussionURL   *string    `json:"discussion_url,omitempty"`
	Score           *int       `json:"score,omitempty"`
	CommentsCount   *int       `json:"comments_count,omitempty"`
	Rank            *int       `json:"rank,omitempty"`
}
