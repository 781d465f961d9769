package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/recallhq/recall/internal/types"
)

// SQLiteStore persists cache Entries as an append-and-compact table:
// writes are plain upserts (SQLite's own WAL/page cache gives us the
// "append" half for free); compaction is VACUUM, run by callers
// periodically rather than automatically, to keep Put latency
// predictable during an indexing run.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a cache database at path,
// following the single-writer-connection convention used throughout
// the pack's modernc.org/sqlite call sites.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS file_cache (
			file_hash TEXT PRIMARY KEY,
			language  TEXT NOT NULL,
			units_json BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

type encodedEntry struct {
	Units []types.SemanticUnit `json:"units"`
}

// Load reads every row into an in-memory map for Cache's startup seed.
func (s *SQLiteStore) Load() (map[string]Entry, error) {
	rows, err := s.db.Query(`SELECT file_hash, language, units_json FROM file_cache`)
	if err != nil {
		return nil, fmt.Errorf("load cache rows: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var hash, lang string
		var blob []byte
		if err := rows.Scan(&hash, &lang, &blob); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		var enc encodedEntry
		if err := json.Unmarshal(blob, &enc); err != nil {
			// A row that fails to decode is itself cache corruption;
			// skip it rather than failing the whole load.
			continue
		}
		out[hash] = Entry{Language: types.Language(lang), Units: enc.Units}
	}
	return out, rows.Err()
}

// Put upserts one row.
func (s *SQLiteStore) Put(fileHash string, entry Entry) error {
	blob, err := json.Marshal(encodedEntry{Units: entry.Units})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO file_cache (file_hash, language, units_json) VALUES (?, ?, ?)
		ON CONFLICT(file_hash) DO UPDATE SET language = excluded.language, units_json = excluded.units_json
	`, fileHash, string(entry.Language), blob)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes one row.
func (s *SQLiteStore) Delete(fileHash string) error {
	_, err := s.db.Exec(`DELETE FROM file_cache WHERE file_hash = ?`, fileHash)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Compact runs VACUUM to reclaim space after heavy churn.
func (s *SQLiteStore) Compact() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ PersistentStore = (*SQLiteStore)(nil)
