// Package index implements the rebuildable relational query index: a
// single index.sqlite file mirroring the filesystem store's Records, kept
// in sync incrementally on each ingest and rebuildable from scratch at any
// time.
package index

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"content-harvest/internal/entity"
	"content-harvest/internal/storage"
)

// DBName is the fixed filename of the index within a data root.
const DBName = "index.sqlite"

// Index wraps the records table in DataRoot/index.sqlite.
type Index struct {
	DataRoot string
}

// New builds an Index rooted at dataRoot.
func New(dataRoot string) *Index {
	return &Index{DataRoot: dataRoot}
}

// Path returns the index's database file path.
func (idx *Index) Path() string {
	return filepath.Join(idx.DataRoot, DBName)
}

// Exists reports whether the index database file is present. The
// orchestrator only upserts into the index when it already exists,
// leaving the index absent by default until explicitly built.
func (idx *Index) Exists() bool {
	_, err := os.Stat(idx.Path())
	return err == nil
}

func (idx *Index) open() (*sql.DB, error) {
	if err := os.MkdirAll(idx.DataRoot, 0o755); err != nil {
		return nil, &entity.IoError{Op: "mkdir", Path: idx.DataRoot, Cause: err}
	}
	db, err := sql.Open("sqlite", idx.Path())
	if err != nil {
		return nil, &entity.IoError{Op: "open", Path: idx.Path(), Cause: err}
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	source_name TEXT,
	kind TEXT,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	archived_at TEXT NOT NULL,
	archived_date TEXT NOT NULL,
	published_at TEXT,
	author TEXT,
	item_id TEXT,
	content_path TEXT,
	snapshot_date TEXT,
	rank INTEGER,
	comments_count INTEGER,
	score INTEGER,
	discussion_url TEXT,
	extra_json TEXT
)`

var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_records_source ON records(source_id)",
	"CREATE INDEX IF NOT EXISTS idx_records_archived_date ON records(archived_date)",
	"CREATE INDEX IF NOT EXISTS idx_records_title ON records(title)",
}

// nullableTextColumns are added to an older records table that predates
// them, matching the "ensure columns exist" schema-evolution pattern: no
// migration log, just an idempotent ALTER TABLE per startup.
var nullableTextColumns = []string{"item_id", "content_path", "source_name", "kind", "snapshot_date"}

// ensureSchema creates the table/indexes if absent and adds any columns a
// pre-existing database is missing.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return &entity.IoError{Op: "create schema", Path: "records", Cause: err}
	}
	existing, err := columnNames(db)
	if err != nil {
		return err
	}
	for _, col := range nullableTextColumns {
		if existing[col] {
			continue
		}
		if _, err := db.Exec("ALTER TABLE records ADD COLUMN " + col + " TEXT"); err != nil {
			return &entity.IoError{Op: "add column " + col, Path: "records", Cause: err}
		}
	}
	for _, stmt := range indexStatements {
		if _, err := db.Exec(stmt); err != nil {
			return &entity.IoError{Op: "create index", Path: "records", Cause: err}
		}
	}
	return nil
}

func columnNames(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("PRAGMA table_info(records)")
	if err != nil {
		return nil, &entity.IoError{Op: "pragma table_info", Path: "records", Cause: err}
	}
	defer rows.Close()

	names := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, &entity.IoError{Op: "scan table_info", Path: "records", Cause: err}
		}
		names[name] = true
	}
	return names, nil
}

// recordID derives the index's primary key the same way the original
// implementation does: the first 40 hex characters (the full digest, for
// SHA-1) of source_id|archived_at|url.
func recordID(r entity.Record) string {
	raw := r.SourceID + "|" + r.ArchivedAt.Format("2006-01-02T15:04:05Z07:00") + "|" + r.URL
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:40]
}

// UpsertRecords inserts or replaces the given records' rows.
func (idx *Index) UpsertRecords(records []entity.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	db, err := idx.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := ensureSchema(db); err != nil {
		return 0, err
	}
	return insertRecords(db, records)
}

func insertRecords(db *sql.DB, records []entity.Record) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, &entity.IoError{Op: "begin tx", Path: "records", Cause: err}
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (
			id, source_id, source_name, kind, title, url, archived_at, archived_date, published_at,
			author, item_id, content_path, snapshot_date, rank, comments_count, score, discussion_url, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, &entity.IoError{Op: "prepare insert", Path: "records", Cause: err}
	}
	defer stmt.Close()

	for _, r := range records {
		var published sql.NullString
		if r.PublishedAt != nil {
			published = sql.NullString{String: r.PublishedAt.Format("2006-01-02T15:04:05Z07:00"), Valid: true}
		}
		var extraJSON sql.NullString
		if r.ContentMarkdown != "" {
			if b, err := json.Marshal(map[string]string{"content_markdown": r.ContentMarkdown}); err == nil {
				extraJSON = sql.NullString{String: string(b), Valid: true}
			}
		}
		_, err := stmt.Exec(
			recordID(r), r.SourceID, nullString(&r.SourceName), nullString(kindString(r.Kind)), r.Title, r.URL,
			r.ArchivedAt.Format("2006-01-02T15:04:05Z07:00"), r.ArchivedAt.Format("2006-01-02"),
			published, nullString(r.Author), nullString(&r.ItemID),
			sql.NullString{}, nullString(r.SnapshotDate), nullInt(r.Rank), nullInt(r.CommentsCount), nullInt(r.Score),
			nullString(r.DiscussionURL), extraJSON,
		)
		if err != nil {
			tx.Rollback()
			return 0, &entity.IoError{Op: "insert record", Path: "records", Cause: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &entity.IoError{Op: "commit tx", Path: "records", Cause: err}
	}
	return len(records), nil
}

func kindString(k entity.Kind) *string {
	if k == "" {
		return nil
	}
	s := string(k)
	return &s
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// Rebuild drops and recreates the index from scratch, reading every
// source's records straight from the filesystem store.
func (idx *Index) Rebuild(store *storage.Storage, sources []entity.Source) (int, error) {
	if idx.Exists() {
		if err := os.Remove(idx.Path()); err != nil {
			return 0, &entity.IoError{Op: "remove", Path: idx.Path(), Cause: err}
		}
	}
	db, err := idx.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := ensureSchema(db); err != nil {
		return 0, err
	}

	total := 0
	for _, src := range sources {
		records, err := store.RecordsForSource(src)
		if err != nil {
			return total, err
		}
		n, err := insertRecords(db, records)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
