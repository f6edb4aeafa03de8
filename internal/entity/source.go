package entity

import "fmt"

// Kind classifies what a Source produces.
type Kind string

const (
	KindAggregation Kind = "aggregation"
	KindBlog        Kind = "blog"
)

// Transport classifies how a Source is fetched.
type Transport string

const (
	TransportAPI   Transport = "api"
	TransportRSS   Transport = "rss"
	TransportHTML  Transport = "html"
	TransportAgent Transport = "agent"
	// TransportCommentAPI is a comment-tree aggregation source (Hacker
	// News/Lobsters-shaped): a seed list endpoint plus a per-story item
	// endpoint, distinct from a plain listing TransportAPI source because
	// its fetcher also BFS-walks a comment tree per story.
	TransportCommentAPI Transport = "comment_api"
)

// Source describes one content origin: its transport, the kind of items it
// produces, and whatever per-source configuration its fetcher needs.
type Source struct {
	ID        string
	Name      string
	Kind      Kind
	Transport Transport
	Enabled   bool

	// URL is the feed/API/listing endpoint. Agent-transport sources treat
	// it as the page the headless agent should open.
	URL string

	// Config carries transport-specific selector/field-path configuration,
	// loaded from config/sources.yaml when present (see SourceConfig).
	Config *SourceConfig
}

// SourceConfig holds per-site configuration for the html and api transports,
// and per-site strategy parameters for comment-site aggregation sources.
// Each field group is meaningful only for the transport it names.
type SourceConfig struct {
	// HTML-list selectors (goquery CSS selectors).
	ItemSelector    string `yaml:"item_selector,omitempty"`
	TitleSelector   string `yaml:"title_selector,omitempty"`
	URLSelector     string `yaml:"url_selector,omitempty"`
	DateSelector    string `yaml:"date_selector,omitempty"`
	AuthorSelector  string `yaml:"author_selector,omitempty"`
	SummarySelector string `yaml:"summary_selector,omitempty"`
	DateFormat      string `yaml:"date_format,omitempty"`
	URLPrefix       string `yaml:"url_prefix,omitempty"`

	// JSON-API field paths (dot-separated, e.g. "data.items").
	ItemsPath     string `yaml:"items_path,omitempty"`
	TitleField    string `yaml:"title_field,omitempty"`
	URLField      string `yaml:"url_field,omitempty"`
	DateField     string `yaml:"date_field,omitempty"`
	AuthorField   string `yaml:"author_field,omitempty"`
	RequestLimit  int    `yaml:"request_limit,omitempty"`

	// Comment-site strategy.
	DetailURLTemplate string `yaml:"detail_url_template,omitempty"`
	ChildrenField     string `yaml:"children_field,omitempty"`
	SeedCount         int    `yaml:"seed_count,omitempty"`
	FinalCount        int    `yaml:"final_count,omitempty"`
	QueueLimit        int    `yaml:"queue_limit,omitempty"`
}

// Validate checks that a Source is internally consistent before it is
// admitted to the registry.
func (s *Source) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	switch s.Kind {
	case KindAggregation, KindBlog:
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported kind %q", s.Kind)}
	}
	switch s.Transport {
	case TransportAPI, TransportRSS, TransportHTML, TransportAgent, TransportCommentAPI:
	default:
		return &ValidationError{Field: "transport", Message: fmt.Sprintf("unsupported transport %q", s.Transport)}
	}
	if (s.Transport == TransportHTML || s.Transport == TransportAPI) && s.Config == nil {
		return &ValidationError{Field: "config", Message: "selector configuration is required for html/api transports"}
	}
	return nil
}

// ValidationError represents a single-field validation failure on an entity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}
