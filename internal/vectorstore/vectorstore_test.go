package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/types"
)

func TestUpsertAndQueryReturnsNearestNeighbor(t *testing.T) {
	s := NewHNSWStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Language: types.LanguageGo},
		{ID: "b", Vector: []float32{0, 1, 0}, Language: types.LanguagePython},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Language: types.LanguageGo},
	}))

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 2, Criteria{})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, types.UnitID("a"), matches[0].ID)
}

func TestQueryWithCriteriaFiltersByLanguage(t *testing.T) {
	s := NewHNSWStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}, Language: types.LanguageGo},
		{ID: "b", Vector: []float32{1, 0}, Language: types.LanguagePython},
	}))

	matches, err := s.Query(ctx, []float32{1, 0}, 10, Criteria{Language: types.LanguagePython})
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, types.UnitID("b"), m.ID)
	}
}

func TestDeleteRemovesFromQueryResults(t *testing.T) {
	s := NewHNSWStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))
	require.NoError(t, s.Delete(ctx, []types.UnitID{"a"}))

	ids, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.UnitID{"b"}, ids)
}

func TestFindByCriteria(t *testing.T) {
	s := NewHNSWStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}, Project: "recall"},
		{ID: "b", Vector: []float32{0, 1}, Project: "other"},
	}))

	ids, err := s.FindByCriteria(ctx, Criteria{Project: "recall"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.UnitID{"a"}, ids)
}

func TestUpsertReplacesExistingRecord(t *testing.T) {
	s := NewHNSWStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Project: "p1"}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{0, 1}, Project: "p2"}}))

	ids, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	found, err := s.FindByCriteria(ctx, Criteria{Project: "p2"})
	require.NoError(t, err)
	assert.Equal(t, []types.UnitID{"a"}, found)
}
