package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/types"
)

func TestLookupMissThenHit(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	_, ok := c.Lookup("hash1", types.LanguageGo)
	assert.False(t, ok)

	require.NoError(t, c.Put("hash1", Entry{
		Language: types.LanguageGo,
		Units:    []types.SemanticUnit{{Name: "foo", Language: types.LanguageGo, ContentHash: "ch1"}},
	}))

	entry, ok := c.Lookup("hash1", types.LanguageGo)
	assert.True(t, ok)
	assert.Len(t, entry.Units, 1)

	counters := c.Counters()
	assert.Equal(t, int64(1), counters.CacheHits)
	assert.Equal(t, int64(1), counters.CacheMisses)
}

func TestLookupLanguageMismatchIsMiss(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("hash1", Entry{Language: types.LanguageGo, Units: []types.SemanticUnit{
		{Name: "foo", Language: types.LanguageGo, ContentHash: "ch1"},
	}}))

	_, ok := c.Lookup("hash1", types.LanguagePython)
	assert.False(t, ok, "stored language go mismatch against python should miss")
}

func TestLookupEvictsCorruptEntry(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("hash1", Entry{
		Language: types.LanguageGo,
		Units:    []types.SemanticUnit{{Name: "foo", Language: types.LanguageGo, ContentHash: ""}},
	}))

	_, ok := c.Lookup("hash1", types.LanguageGo)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "corrupt entry should have been evicted")
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	entry := Entry{
		Language: types.LanguagePython,
		Units:    []types.SemanticUnit{{Name: "handler", Language: types.LanguagePython, ContentHash: "abc123"}},
	}
	require.NoError(t, store.Put("filehash1", entry))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, "filehash1")
	assert.Equal(t, types.LanguagePython, loaded["filehash1"].Language)
	assert.Len(t, loaded["filehash1"].Units, 1)

	require.NoError(t, store.Delete("filehash1"))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.NotContains(t, loaded, "filehash1")
}

func TestCacheSeedsFromPersistentStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	require.NoError(t, store.Put("hash1", Entry{
		Language: types.LanguageGo,
		Units:    []types.SemanticUnit{{Name: "f", Language: types.LanguageGo, ContentHash: "c1"}},
	}))
	require.NoError(t, store.Close())

	store2, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store2.Close()

	c, err := New(store2)
	require.NoError(t, err)
	_, ok := c.Lookup("hash1", types.LanguageGo)
	assert.True(t, ok)
}
