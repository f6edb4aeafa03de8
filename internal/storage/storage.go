// Package storage implements the versioned, content-addressed filesystem
// store: one directory per source holding an append-only manifest, a
// per-item content/metadata pair, and (for aggregation sources) daily
// snapshot files.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"content-harvest/internal/entity"
	"content-harvest/internal/textproc/blocked"
	"content-harvest/internal/textproc/slugutil"
	"content-harvest/internal/timeutil"
)

// Storage is the filesystem-backed store rooted at DataRoot.
type Storage struct {
	DataRoot string
}

// New builds a Storage rooted at dataRoot.
func New(dataRoot string) *Storage {
	return &Storage{DataRoot: dataRoot}
}

func (s *Storage) SourceRoot(sourceID string) string {
	return filepath.Join(s.DataRoot, "sources", sourceID)
}

func (s *Storage) ManifestPath(sourceID string) string {
	return filepath.Join(s.SourceRoot(sourceID), "manifest.jsonl")
}

func (s *Storage) SnapshotsDir(sourceID string) string {
	return filepath.Join(s.SourceRoot(sourceID), "snapshots")
}

func (s *Storage) ItemsDir(sourceID string) string {
	return filepath.Join(s.SourceRoot(sourceID), "items")
}

func (s *Storage) ContentPath(sourceID, itemID string) string {
	return filepath.Join(s.ItemsDir(sourceID), itemID, "content.md")
}

func (s *Storage) RunsDir() string {
	return filepath.Join(s.DataRoot, "runs")
}

func (s *Storage) EnsureDirs(sourceID string) error {
	if err := os.MkdirAll(s.SnapshotsDir(sourceID), 0o755); err != nil {
		return &entity.IoError{Op: "mkdir", Path: s.SnapshotsDir(sourceID), Cause: err}
	}
	if err := os.MkdirAll(s.ItemsDir(sourceID), 0o755); err != nil {
		return &entity.IoError{Op: "mkdir", Path: s.ItemsDir(sourceID), Cause: err}
	}
	return nil
}

// manifestRow is the JSON shape of one manifest.jsonl line and of an item's
// meta.json.
type manifestRow struct {
	ID          string  `json:"id"`
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt *string `json:"published_at"`
	ArchivedAt  string  `json:"archived_at"`
	Author      *string `json:"author"`
	Summary     *string `json:"summary"`
	ContentPath string  `json:"content_path"`
}

// LoadManifest reads every row of a source's manifest.jsonl. A missing
// file is not an error; it means the source has never been ingested.
func (s *Storage) LoadManifest(sourceID string) ([]manifestRow, error) {
	data, err := os.ReadFile(s.ManifestPath(sourceID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &entity.IoError{Op: "read", Path: s.ManifestPath(sourceID), Cause: err}
	}
	var rows []manifestRow
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row manifestRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, &entity.IoError{Op: "parse manifest line", Path: s.ManifestPath(sourceID), Cause: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExistingURLs returns the set of URLs already present in a source's manifest.
func (s *Storage) ExistingURLs(sourceID string) (map[string]bool, error) {
	rows, err := s.LoadManifest(sourceID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.URL != "" {
			set[r.URL] = true
		}
	}
	return set, nil
}

// appendManifest appends rows to manifest.jsonl, one JSON object per line,
// flushing after every line so a crash mid-append never corrupts a prior
// line (append-only files can't use the temp-file-rename trick other
// writes in this package use, since that would not be append-only).
func (s *Storage) appendManifest(sourceID string, rows []manifestRow) error {
	path := s.ManifestPath(sourceID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &entity.IoError{Op: "mkdir", Path: filepath.Dir(path), Cause: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &entity.IoError{Op: "open", Path: path, Cause: err}
	}
	defer f.Close()

	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return &entity.IoError{Op: "marshal manifest row", Path: path, Cause: err}
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return &entity.IoError{Op: "write", Path: path, Cause: err}
		}
		if err := f.Sync(); err != nil {
			return &entity.IoError{Op: "sync", Path: path, Cause: err}
		}
	}
	return nil
}

// SaveBlogItems stores a blog source's new items: each URL already present
// in the manifest is skipped unless its existing content looks empty or
// placeholder, in which case the content file is rewritten in place without
// a new manifest row (the "refill" rule).
func (s *Storage) SaveBlogItems(src entity.Source, items []entity.BlogItem) ([]entity.Record, error) {
	if err := s.EnsureDirs(src.ID); err != nil {
		return nil, err
	}
	archivedAt := timeutil.IsoNow()
	existing, err := s.ExistingURLs(src.ID)
	if err != nil {
		return nil, err
	}

	var records []entity.Record
	var manifestRows []manifestRow

	for _, item := range items {
		itemID := slugutil.ItemID(item.Title, item.URL)
		content := ""
		if item.ContentMarkdown != nil {
			content = *item.ContentMarkdown
		} else if item.Summary != nil {
			content = *item.Summary
		}

		if existing[item.URL] {
			refilled, rerr := s.maybeRefill(src.ID, itemID, content)
			if rerr != nil {
				return nil, rerr
			}
			if refilled {
				records = append(records, s.toRecord(src, item, itemID, archivedAt))
			}
			continue
		}

		itemDir := filepath.Join(s.ItemsDir(src.ID), itemID)
		if err := os.MkdirAll(itemDir, 0o755); err != nil {
			return nil, &entity.IoError{Op: "mkdir", Path: itemDir, Cause: err}
		}
		contentPath := filepath.Join(itemDir, "content.md")
		if err := writeFileAtomic(contentPath, []byte(content)); err != nil {
			return nil, err
		}

		contentRel, _ := filepath.Rel(s.DataRoot, contentPath)
		row := manifestRow{
			ID:          itemID,
			SourceID:    src.ID,
			Title:       item.Title,
			URL:         item.URL,
			ArchivedAt:  archivedAt,
			Author:      item.Author,
			Summary:     item.Summary,
			ContentPath: contentRel,
		}
		if item.PublishedAt != nil {
			ts := item.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
			row.PublishedAt = &ts
		}
		metaPath := filepath.Join(itemDir, "meta.json")
		metaJSON, err := json.MarshalIndent(row, "", "  ")
		if err != nil {
			return nil, &entity.IoError{Op: "marshal meta", Path: metaPath, Cause: err}
		}
		if err := writeFileAtomic(metaPath, metaJSON); err != nil {
			return nil, err
		}

		manifestRows = append(manifestRows, row)
		records = append(records, s.toRecord(src, item, itemID, archivedAt))
	}

	if len(manifestRows) > 0 {
		if err := s.appendManifest(src.ID, manifestRows); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// maybeRefill rewrites an existing item's content.md in place if it is
// empty or matches a placeholder signature, leaving the manifest
// untouched. Returns whether a rewrite happened.
func (s *Storage) maybeRefill(sourceID, itemID, newContent string) (bool, error) {
	contentPath := s.ContentPath(sourceID, itemID)
	existing, err := os.ReadFile(contentPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &entity.IoError{Op: "read", Path: contentPath, Cause: err}
	}
	existingText := string(existing)
	if strings.TrimSpace(existingText) != "" && !blocked.IsPlaceholder(existingText) {
		return false, nil
	}
	if strings.TrimSpace(newContent) == "" || blocked.IsPlaceholder(newContent) {
		return false, nil
	}
	if err := writeFileAtomic(contentPath, []byte(newContent)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) toRecord(src entity.Source, item entity.BlogItem, itemID, archivedAt string) entity.Record {
	archived, _ := timeutil.ParseDateTime(archivedAt)
	return entity.Record{
		ItemID:      itemID,
		SourceID:    src.ID,
		SourceName:  src.Name,
		Kind:        src.Kind,
		Title:       item.Title,
		URL:         item.URL,
		Author:      item.Author,
		PublishedAt: item.PublishedAt,
		ArchivedAt:  archived,
	}
}

// SaveSnapshot overwrites today's snapshot file for an aggregation source.
func (s *Storage) SaveSnapshot(src entity.Source, items []entity.AggregationItem) (string, error) {
	if err := s.EnsureDirs(src.ID); err != nil {
		return "", err
	}
	date := timeutil.IsoDateToday()
	path := filepath.Join(s.SnapshotsDir(src.ID), date+".json")

	payload := map[string]any{
		"source_id":    src.ID,
		"source_name":  src.Name,
		"archived_at":  date,
		"generated_at": timeutil.IsoNow(),
		"items":        items,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", &entity.IoError{Op: "marshal snapshot", Path: path, Cause: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// RecordsForSource returns the unified Record view for a source: snapshot
// rows for aggregation sources, manifest rows for blog sources.
func (s *Storage) RecordsForSource(src entity.Source) ([]entity.Record, error) {
	if src.Kind == entity.KindAggregation {
		return s.snapshotRecords(src)
	}
	rows, err := s.LoadManifest(src.ID)
	if err != nil {
		return nil, err
	}
	records := make([]entity.Record, 0, len(rows))
	for _, row := range rows {
		archived, _ := timeutil.ParseDateTime(row.ArchivedAt)
		rec := entity.Record{
			ItemID:     row.ID,
			SourceID:   row.SourceID,
			SourceName: src.Name,
			Kind:       src.Kind,
			Title:      row.Title,
			URL:        row.URL,
			Author:     row.Author,
			ArchivedAt: archived,
		}
		if row.PublishedAt != nil {
			rec.PublishedAt = timeutil.ParseDateTimePtr(*row.PublishedAt)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Storage) snapshotRecords(src entity.Source) ([]entity.Record, error) {
	dir := s.SnapshotsDir(src.ID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &entity.IoError{Op: "readdir", Path: dir, Cause: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var records []entity.Record
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &entity.IoError{Op: "read", Path: filepath.Join(dir, name), Cause: err}
		}
		var payload struct {
			ArchivedAt string                  `json:"archived_at"`
			Items      []entity.AggregationItem `json:"items"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, &entity.IoError{Op: "parse snapshot", Path: filepath.Join(dir, name), Cause: err}
		}
		archived, _ := timeutil.ParseDateTime(payload.ArchivedAt)
		snapshotDate := payload.ArchivedAt
		for _, item := range payload.Items {
			records = append(records, entity.Record{
				SourceID:      src.ID,
				SourceName:    src.Name,
				Kind:          src.Kind,
				Title:         item.Title,
				URL:           item.URL,
				Author:        item.Author,
				PublishedAt:   item.PublishedAt,
				ArchivedAt:    archived,
				SnapshotDate:  &snapshotDate,
				DiscussionURL: item.DiscussionURL,
				Score:         item.Score,
				CommentsCount: item.CommentsCount,
				Rank:          item.Rank,
			})
		}
	}
	return records, nil
}

// RecordRun writes a run's report JSON, overwriting any previous partial
// write for the same run id.
func (s *Storage) RecordRun(report entity.RunReport) (string, error) {
	if err := os.MkdirAll(s.RunsDir(), 0o755); err != nil {
		return "", &entity.IoError{Op: "mkdir", Path: s.RunsDir(), Cause: err}
	}
	path := filepath.Join(s.RunsDir(), "run-"+report.RunID+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", &entity.IoError{Op: "marshal run report", Path: path, Cause: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
