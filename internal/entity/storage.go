package entity

import "time"

// ItemVersion describes one version of an item's content. The storage
// package does not use it: it keeps a single items/<item_id>/content.md plus
// meta.json per item, rewritten in place only by its refill rule, and
// records no version numbers or content hashes.
type ItemVersion struct {
	ItemID      string    `json:"item_id"`
	SourceID    string    `json:"source_id"`
	Version     int       `json:"version"`
	ContentHash string    `json:"content_hash"`
	ArchivedAt  time.Time `json:"archived_at"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Author      *string   `json:"author,omitempty"`
}

// ManifestEntry describes one archive event of a source. The storage
// package does not write it: manifest.jsonl lines use storage's own row
// type (id, source_id, title, url, published_at, archived_at, author,
// summary, content_path).
type ManifestEntry struct {
	ItemID     string    `json:"item_id"`
	SourceID   string    `json:"source_id"`
	URL        string    `json:"url"`
	ArchivedAt time.Time `json:"archived_at"`
	RunID      string    `json:"run_id"`
}

// Snapshot is a daily point-in-time aggregation view across sources. The
// storage package does not write it: each source's snapshots/<date>.json
// holds source_id, source_name, archived_at, generated_at and items, and
// intra-day re-runs overwrite that file.
type Snapshot struct {
	Date    string           `json:"date"`
	Sources map[string][]any `json:"sources"`
}

// RunReport is runs/run-<run_id>.json: the audit record of one orchestrator run.
type RunReport struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Sources    []string        `json:"sources"`
	Successes  []SourceOutcome `json:"successes"`
	Failures   []SourceFailure `json:"failures"`
}

// SourceOutcome records one source's successful contribution to a run.
type SourceOutcome struct {
	SourceID    string `json:"source_id"`
	ItemsFound  int    `json:"items_found"`
	ItemsStored int    `json:"items_stored"`
	Duplicates  int    `json:"duplicates"`
}

// SourceFailure records one source's failure within a run. It is mirrored,
// one JSON object per line, into runs/run-<run_id>-failures.jsonl as the
// run progresses so a crash mid-run still leaves a partial trail.
type SourceFailure struct {
	SourceID   string    `json:"source_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Error      string    `json:"error"`
}
