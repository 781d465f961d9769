// Package memory implements the retention/pruning lifecycle for stored
// Memory items (component H, §4.8): a SQLite-backed store, the pruning
// protocol itself, and a robfig/cron scheduler that runs it on a timer.
// Grounded on internal/cache/sqlite_store.go for the single-connection
// modernc.org/sqlite wiring and on
// ternarybob-quaero/internal/services/scheduler/scheduler_service.go
// for the cron wrapper shape.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/recallhq/recall/internal/types"
)

// Store is the persistence boundary the pruner operates against.
// Implementations must support both the criteria-query path (§4.8
// step 1's primary route) and a full-scan fallback.
type Store interface {
	// ListByContextLevel returns every memory at the given level, the
	// store-side criteria query spec §4.8 prefers.
	ListByContextLevel(ctx context.Context, level types.ContextLevel) ([]types.Memory, error)
	// ListAll is the full-scan fallback when a store can't push the
	// context_level filter down.
	ListAll(ctx context.Context) ([]types.Memory, error)
	// Delete removes memories by id, along with any usage-tracking rows
	// that reference them.
	Delete(ctx context.Context, ids []string) error
	// DeleteOrphanUsageRows removes usage-tracking rows whose memory id
	// no longer exists, independent of any particular prune pass.
	DeleteOrphanUsageRows(ctx context.Context) (int, error)
	// Put upserts a memory and records a usage-tracking row for it.
	// Used by tests and by retrieval callers recording a new memory.
	Put(ctx context.Context, m types.Memory) error
	// Touch bumps use_count and last_used for a memory that was just
	// read by a retrieval caller.
	Touch(ctx context.Context, id string, when time.Time) error
	Close() error
}

// SQLiteStore is the reference Store, a single-writer-connection
// SQLite database with a memories table and a separate usage_tracking
// table so orphan rows (usage rows whose memory was deleted by some
// other path) are representable and cleanable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a memory database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		category      TEXT NOT NULL,
		scope         TEXT NOT NULL,
		project_name  TEXT NOT NULL DEFAULT '',
		context_level TEXT NOT NULL,
		importance    REAL NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL,
		last_used     INTEGER,
		use_count     INTEGER NOT NULL DEFAULT 0,
		embedding_ref TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_memories_context_level ON memories(context_level);
	CREATE TABLE IF NOT EXISTS usage_tracking (
		memory_id  TEXT PRIMARY KEY,
		last_used  INTEGER,
		use_count  INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init memory schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Put(ctx context.Context, m types.Memory) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var lastUsed sql.NullInt64
	if m.LastUsed != nil {
		lastUsed = sql.NullInt64{Int64: m.LastUsed.Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, category, scope, project_name, context_level, importance, created_at, last_used, use_count, embedding_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, category=excluded.category, scope=excluded.scope,
			project_name=excluded.project_name, context_level=excluded.context_level,
			importance=excluded.importance, last_used=excluded.last_used,
			use_count=excluded.use_count, embedding_ref=excluded.embedding_ref
	`, m.ID, m.Content, string(m.Category), string(m.Scope), m.ProjectName, string(m.ContextLevel),
		m.Importance, m.CreatedAt.Unix(), lastUsed, m.UseCount, m.EmbeddingRef)
	if err != nil {
		return fmt.Errorf("put memory: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO usage_tracking (memory_id, last_used, use_count) VALUES (?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET last_used=excluded.last_used, use_count=excluded.use_count
	`, m.ID, lastUsed, m.UseCount)
	if err != nil {
		return fmt.Errorf("put usage row: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Touch(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET last_used = ?, use_count = use_count + 1 WHERE id = ?
	`, when.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("touch memory: no such id %q", id)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO usage_tracking (memory_id, last_used, use_count) VALUES (?, ?, 1)
		ON CONFLICT(memory_id) DO UPDATE SET last_used=excluded.last_used, use_count=usage_tracking.use_count + 1
	`, id, when.Unix())
	if err != nil {
		return fmt.Errorf("touch usage row: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByContextLevel(ctx context.Context, level types.ContextLevel) ([]types.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, category, scope, project_name, context_level, importance, created_at, last_used, use_count, embedding_ref
		FROM memories WHERE context_level = ?
	`, string(level))
	if err != nil {
		return nil, fmt.Errorf("list by context level: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]types.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, category, scope, project_name, context_level, importance, created_at, last_used, use_count, embedding_ref
		FROM memories
	`)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func scanMemories(rows *sql.Rows) ([]types.Memory, error) {
	var out []types.Memory
	for rows.Next() {
		var (
			m          types.Memory
			category   string
			scope      string
			level      string
			createdAt  int64
			lastUsed   sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Content, &category, &scope, &m.ProjectName, &level,
			&m.Importance, &createdAt, &lastUsed, &m.UseCount, &m.EmbeddingRef); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		m.Category = types.MemoryCategory(category)
		m.Scope = types.MemoryScope(scope)
		m.ContextLevel = types.ContextLevel(level)
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		if lastUsed.Valid {
			t := time.Unix(lastUsed.Int64, 0).UTC()
			m.LastUsed = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete memory %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM usage_tracking WHERE memory_id = ?`, id); err != nil {
			return fmt.Errorf("delete usage row %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteOrphanUsageRows(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM usage_tracking
		WHERE memory_id NOT IN (SELECT id FROM memories)
	`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan usage rows: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
