// Package metrics implements the per-run metrics log, the time
// estimator and the optimization advisor of §4.9: every indexing run
// appends a record; the estimator uses the mean of recent runs'
// per-file times to bound a new estimate; the advisor flags exclusion
// opportunities when that estimate is large. Grounded in storage shape
// on internal/cache/sqlite_store.go and internal/memory/store.go (the
// same single-connection modernc.org/sqlite pattern used throughout
// this codebase), and in ETA-calculation shape on
// Aman-CERP-amanmcp/internal/ui/progress.go's ProgressTracker, with
// its exponential smoothing dropped in favor of the exact
// elapsed/completed*remaining formula spec.md §4.9 specifies.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one completed indexing run's metrics record.
type Run struct {
	ProjectName      string
	FilesIndexed     int
	TotalTimeSeconds float64
	AvgTimePerFileMs float64
	TotalSizeBytes   int64
	Timestamp        time.Time
}

// Store is the append-only metrics log boundary.
type Store interface {
	Append(ctx context.Context, r Run) error
	// Recent returns up to n most recent runs, newest first, optionally
	// scoped to project (empty string means all projects).
	Recent(ctx context.Context, project string, n int) ([]Run, error)
	Close() error
}

// SQLiteStore is the reference Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a metrics database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metrics directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			project_name         TEXT NOT NULL,
			files_indexed        INTEGER NOT NULL,
			total_time_seconds   REAL NOT NULL,
			avg_time_per_file_ms REAL NOT NULL,
			total_size_bytes     INTEGER NOT NULL,
			timestamp            INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_project_ts ON runs(project_name, timestamp DESC);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init metrics schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Append(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (project_name, files_indexed, total_time_seconds, avg_time_per_file_ms, total_size_bytes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ProjectName, r.FilesIndexed, r.TotalTimeSeconds, r.AvgTimePerFileMs, r.TotalSizeBytes, r.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, project string, n int) ([]Run, error) {
	var rows *sql.Rows
	var err error
	if project == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT project_name, files_indexed, total_time_seconds, avg_time_per_file_ms, total_size_bytes, timestamp
			FROM runs ORDER BY timestamp DESC LIMIT ?
		`, n)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT project_name, files_indexed, total_time_seconds, avg_time_per_file_ms, total_size_bytes, timestamp
			FROM runs WHERE project_name = ? ORDER BY timestamp DESC LIMIT ?
		`, project, n)
	}
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts int64
		if err := rows.Scan(&r.ProjectName, &r.FilesIndexed, &r.TotalTimeSeconds, &r.AvgTimePerFileMs, &r.TotalSizeBytes, &ts); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
