// Package query implements the keyword/date/source query engine described
// by the harvester's external interface: it prefers the relational index
// when present, and falls back to scanning the filesystem store directly
// when it isn't, so queries never hard-depend on the index being built.
package query

import (
	"sort"
	"strings"

	"content-harvest/internal/entity"
	"content-harvest/internal/index"
	"content-harvest/internal/sources"
	"content-harvest/internal/storage"
)

// Engine answers source/keyword/archive-date queries.
type Engine struct {
	store    *storage.Storage
	idx      *index.Index
	registry *sources.Registry
}

// New builds a query Engine over store, idx, and registry.
func New(store *storage.Storage, idx *index.Index, registry *sources.Registry) *Engine {
	return &Engine{store: store, idx: idx, registry: registry}
}

// BySource returns every record for one source, most recent first.
func (e *Engine) BySource(sourceID string, limit int) ([]entity.Record, error) {
	if e.idx != nil && e.idx.Exists() {
		return e.idx.QueryBySource(sourceID, limit)
	}
	src, err := e.registry.Get(sourceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.RecordsForSource(src)
	if err != nil {
		return nil, err
	}
	sortByArchivedDesc(records)
	return capLimit(records, limit), nil
}

// ByKeyword returns records whose title contains keyword, across every
// enabled source unless sourceIDs narrows it.
func (e *Engine) ByKeyword(keyword string, sourceIDs []string, limit int) ([]entity.Record, error) {
	if e.idx != nil && e.idx.Exists() {
		return e.idx.QueryByKeyword(keyword, index.QueryFilters{SourceIDs: sourceIDs, Limit: limit})
	}
	records, err := e.scanAll(sourceIDs)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(keyword)
	var matched []entity.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), lower) {
			matched = append(matched, r)
		}
	}
	sortByArchivedDesc(matched)
	return capLimit(matched, limit), nil
}

// ByArchiveDateOn returns records archived on exactly one UTC date
// (YYYY-MM-DD), the "on" form of an archive-date query.
func (e *Engine) ByArchiveDateOn(on string, sourceIDs []string, limit int) ([]entity.Record, error) {
	return e.ByArchiveDate(on, on, sourceIDs, limit)
}

// ByArchiveDate returns records archived within [start, end] (YYYY-MM-DD),
// inclusive. A range must give both endpoints or neither form is valid: a
// single endpoint with the other blank is rejected with a ValueError rather
// than silently treated as an open-ended range.
func (e *Engine) ByArchiveDate(start, end string, sourceIDs []string, limit int) ([]entity.Record, error) {
	if (start == "") != (end == "") {
		return nil, &entity.ValueError{Message: "archive date range requires both start and end"}
	}
	if e.idx != nil && e.idx.Exists() {
		return e.idx.QueryByArchiveDate(start, end, index.QueryFilters{SourceIDs: sourceIDs, Limit: limit})
	}
	records, err := e.scanAll(sourceIDs)
	if err != nil {
		return nil, err
	}
	var matched []entity.Record
	for _, r := range records {
		d := r.ArchivedAt.Format("2006-01-02")
		if d >= start && d <= end {
			matched = append(matched, r)
		}
	}
	sortByArchivedDesc(matched)
	return capLimit(matched, limit), nil
}

func (e *Engine) scanAll(sourceIDs []string) ([]entity.Record, error) {
	var srcList []entity.Source
	if len(sourceIDs) > 0 {
		for _, id := range sourceIDs {
			s, err := e.registry.Get(id)
			if err != nil {
				return nil, err
			}
			srcList = append(srcList, s)
		}
	} else {
		srcList = e.registry.List(false)
	}

	var out []entity.Record
	for _, src := range srcList {
		records, err := e.store.RecordsForSource(src)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func sortByArchivedDesc(records []entity.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ArchivedAt.After(records[j].ArchivedAt)
	})
}

func capLimit(records []entity.Record, limit int) []entity.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
