package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecentOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", FilesIndexed: 10, TotalTimeSeconds: 1, AvgTimePerFileMs: 100, Timestamp: base}))
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", FilesIndexed: 20, TotalTimeSeconds: 2, AvgTimePerFileMs: 100, Timestamp: base.Add(time.Minute)}))

	runs, err := s.Recent(ctx, "p", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 20, runs[0].FilesIndexed, "newest run first")
}

func TestRecentScopesByProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, Run{ProjectName: "a", FilesIndexed: 1, Timestamp: time.Now()}))
	require.NoError(t, s.Append(ctx, Run{ProjectName: "b", FilesIndexed: 2, Timestamp: time.Now()}))

	runs, err := s.Recent(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].ProjectName)

	all, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecentRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, Run{ProjectName: "p", FilesIndexed: i, Timestamp: time.Now().Add(time.Duration(i) * time.Second)}))
	}

	runs, err := s.Recent(ctx, "p", 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
