package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"content-harvest/internal/entity"
)

// QueryFilters narrows a keyword/archive-date query to specific sources.
type QueryFilters struct {
	SourceIDs []string
	Limit     int
}

// whereClause mirrors the teacher's ArticleQueryBuilder: keyword LIKE
// conditions AND'd together, plus an optional source_id IN (...) filter.
func whereClause(keywords []string, filters QueryFilters) (string, []any) {
	var conditions []string
	var args []any

	for _, kw := range keywords {
		like := "%" + strings.ToLower(kw) + "%"
		conditions = append(conditions, "lower(title) LIKE ?")
		args = append(args, like)
	}
	if len(filters.SourceIDs) > 0 {
		placeholders := make([]string, len(filters.SourceIDs))
		for i, id := range filters.SourceIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("source_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// QueryBySource returns every record for one source, most recent first.
func (idx *Index) QueryBySource(sourceID string, limit int) ([]entity.Record, error) {
	sql := "SELECT * FROM records WHERE source_id = ? ORDER BY archived_at DESC"
	args := []any{sourceID}
	if limit > 0 {
		sql += " LIMIT ?"
		args = append(args, limit)
	}
	return idx.query(sql, args)
}

// QueryByKeyword returns records whose title matches keyword, optionally
// restricted to a set of source ids.
func (idx *Index) QueryByKeyword(keyword string, filters QueryFilters) ([]entity.Record, error) {
	clause, args := whereClause([]string{keyword}, filters)
	sql := "SELECT * FROM records " + clause + " ORDER BY archived_at DESC"
	if filters.Limit > 0 {
		sql += " LIMIT ?"
		args = append(args, filters.Limit)
	}
	return idx.query(sql, args)
}

// QueryByArchiveDate returns records archived within [start, end] (inclusive,
// YYYY-MM-DD), optionally restricted to a set of source ids.
func (idx *Index) QueryByArchiveDate(start, end string, filters QueryFilters) ([]entity.Record, error) {
	clause, args := whereClause(nil, filters)
	dateCond := "archived_date BETWEEN ? AND ?"
	dateArgs := []any{start, end}
	var sql string
	if clause == "" {
		sql = "SELECT * FROM records WHERE " + dateCond
		args = dateArgs
	} else {
		sql = "SELECT * FROM records " + clause + " AND " + dateCond
		args = append(args, dateArgs...)
	}
	sql += " ORDER BY archived_at DESC"
	if filters.Limit > 0 {
		sql += " LIMIT ?"
		args = append(args, filters.Limit)
	}
	return idx.query(sql, args)
}

func (idx *Index) query(query string, args []any) ([]entity.Record, error) {
	db, err := idx.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := ensureSchema(db); err != nil {
		return nil, err
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, &entity.IoError{Op: "query", Path: "records", Cause: err}
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		var (
			id, sourceID, title, url, archivedAt, archivedDate string
			sourceName, kind                                    sql.NullString
			published, author, itemID, contentPath             sql.NullString
			snapshotDate                                        sql.NullString
			rank, commentsCount, score                          sql.NullInt64
			discussionURL, extraJSON                            sql.NullString
		)
		if err := rows.Scan(&id, &sourceID, &sourceName, &kind, &title, &url, &archivedAt, &archivedDate,
			&published, &author, &itemID, &contentPath, &snapshotDate, &rank, &commentsCount, &score,
			&discussionURL, &extraJSON); err != nil {
			return nil, &entity.IoError{Op: "scan record", Path: "records", Cause: err}
		}

		rec := entity.Record{SourceID: sourceID, Title: title, URL: url}
		if sourceName.Valid {
			rec.SourceName = sourceName.String
		}
		if kind.Valid {
			rec.Kind = entity.Kind(kind.String)
		}
		if t, perr := time.Parse("2006-01-02T15:04:05Z07:00", archivedAt); perr == nil {
			rec.ArchivedAt = t
		}
		if published.Valid {
			if t, perr := time.Parse("2006-01-02T15:04:05Z07:00", published.String); perr == nil {
				rec.PublishedAt = &t
			}
		}
		if author.Valid {
			rec.Author = &author.String
		}
		if itemID.Valid {
			rec.ItemID = itemID.String
		}
		if snapshotDate.Valid {
			rec.SnapshotDate = &snapshotDate.String
		}
		if discussionURL.Valid {
			rec.DiscussionURL = &discussionURL.String
		}
		if rank.Valid {
			v := int(rank.Int64)
			rec.Rank = &v
		}
		if commentsCount.Valid {
			v := int(commentsCount.Int64)
			rec.CommentsCount = &v
		}
		if score.Valid {
			v := int(score.Int64)
			rec.Score = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
