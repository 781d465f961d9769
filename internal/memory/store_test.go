package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndListByContextLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := types.Memory{
		Content:      "user prefers tabs",
		Category:     types.CategoryPreference,
		Scope:        types.ScopeGlobal,
		ContextLevel: types.ContextLevelUserPreference,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.Put(ctx, m))

	found, err := s.ListByContextLevel(ctx, types.ContextLevelUserPreference)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "user prefers tabs", found[0].Content)
	assert.NotEmpty(t, found[0].ID, "Put mints an id when none is supplied")

	empty, err := s.ListByContextLevel(ctx, types.ContextLevelSessionState)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTouchBumpsUseCountAndLastUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := types.Memory{ID: "m1", Content: "x", Category: types.CategoryFact, Scope: types.ScopeProject,
		ContextLevel: types.ContextLevelOther, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.Put(ctx, m))

	when := time.Now()
	require.NoError(t, s.Touch(ctx, "m1", when))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].UseCount)
	require.NotNil(t, all[0].LastUsed)
	assert.WithinDuration(t, when, *all[0].LastUsed, time.Second)
}

func TestDeleteRemovesMemoryAndUsageRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, types.Memory{ID: "m1", Content: "x", Category: types.CategoryFact,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: time.Now()}))

	require.NoError(t, s.Delete(ctx, []string{"m1"}))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := s.DeleteOrphanUsageRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "Delete already removed the usage row, nothing orphaned")
}

func TestDeleteOrphanUsageRowsCleansDanglingRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, types.Memory{ID: "m1", Content: "x", Category: types.CategoryFact,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: time.Now()}))

	// Simulate a memory row deleted by some other path, leaving its
	// usage_tracking row behind.
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, "m1")
	require.NoError(t, err)

	n, err := s.DeleteOrphanUsageRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
