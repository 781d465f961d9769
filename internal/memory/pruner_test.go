package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/types"
)

func testMemoryConfig() config.Memory {
	return config.Memory{SessionTTLHours: 48, StaleDays: 30, SafetyWindowHours: 24}
}

func TestPruneExpiredDeletesStaleSessionState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "session1", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: old, LastUsed: &old}))

	p := NewPruner(s, testMemoryConfig())
	result, err := p.PruneExpired(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"session1"}, result.Deleted)

	remaining, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestPruneExpiredRespectsSafetyGate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Now().Add(-72 * time.Hour)
	recentUse := time.Now().Add(-12 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "session1", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: created, LastUsed: &recentUse}))

	p := NewPruner(s, testMemoryConfig())
	// A 1h TTL override would otherwise expire this (last activity 12h
	// ago), but the 24h safety gate takes precedence.
	result, err := p.PruneExpired(ctx, Options{TTLHours: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Deleted, "used within the last 24h, safety gate overrides TTL expiry")

	remaining, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestPruneExpiredDryRunMutatesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "session1", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: old, LastUsed: &old}))

	p := NewPruner(s, testMemoryConfig())
	result, err := p.PruneExpired(ctx, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Empty(t, result.Deleted)

	remaining, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "dry_run returns the candidate list without deleting")
}

func TestPruneExpiredNeverDeletesUserPreferenceOrProjectContext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "pref1", Content: "x", Category: types.CategoryPreference,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelUserPreference, CreatedAt: old, LastUsed: &old}))
	require.NoError(t, s.Put(ctx, types.Memory{ID: "proj1", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeProject, ContextLevel: types.ContextLevelProjectContext, CreatedAt: old, LastUsed: &old}))

	p := NewPruner(s, testMemoryConfig())
	result, err := p.PruneExpired(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)

	remaining, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestPruneExpiredDeletesStaleUnusedOther(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "other1", Content: "x", Category: types.CategoryFact,
		Scope: types.ScopeProject, ContextLevel: types.ContextLevelOther, CreatedAt: old, UseCount: 0}))

	p := NewPruner(s, testMemoryConfig())
	result, err := p.PruneExpired(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"other1"}, result.Deleted)
}

func TestPruneExpiredKeepsUsedOtherRegardlessOfAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "other1", Content: "x", Category: types.CategoryFact,
		Scope: types.ScopeProject, ContextLevel: types.ContextLevelOther, CreatedAt: old, UseCount: 5}))

	p := NewPruner(s, testMemoryConfig())
	result, err := p.PruneExpired(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Deleted, "use_count > 0 is never stale-pruned regardless of age")
}

func TestGetStatsAccumulatesAcrossRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-72 * time.Hour)

	p := NewPruner(s, testMemoryConfig())

	require.NoError(t, s.Put(ctx, types.Memory{ID: "a", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: old, LastUsed: &old}))
	_, err := p.PruneExpired(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, types.Memory{ID: "b", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: old, LastUsed: &old}))
	_, err = p.PruneExpired(ctx, Options{})
	require.NoError(t, err)

	stats := p.GetStats()
	assert.Equal(t, 2, stats.TotalPrunes)
	assert.Equal(t, 2, stats.TotalDeleted)
	assert.Equal(t, 1, stats.LastPruneDeleted)
	assert.False(t, stats.LastPruneTime.IsZero())
}

func TestPruneOrphansRemovesDanglingUsageRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, types.Memory{ID: "a", Content: "x", Category: types.CategoryFact,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelOther, CreatedAt: time.Now()}))
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, "a")
	require.NoError(t, err)

	p := NewPruner(s, testMemoryConfig())
	n, err := p.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPruneExpiredCustomTTLOverridesConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	age := time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.Put(ctx, types.Memory{ID: "a", Content: "x", Category: types.CategoryContext,
		Scope: types.ScopeGlobal, ContextLevel: types.ContextLevelSessionState, CreatedAt: age}))

	p := NewPruner(s, testMemoryConfig())
	// Default 48h TTL would not expire a 2h-old memory; an explicit 1h
	// override should.
	result, err := p.PruneExpired(ctx, Options{TTLHours: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Deleted)
}
