package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/bm25"
	"github.com/recallhq/recall/internal/cache"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/parser"
	"github.com/recallhq/recall/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestIndexer(t *testing.T) (*Indexer, *bm25.Index, vectorstore.Store) {
	t.Helper()
	cfg := config.Default()
	idx := bm25.NewIndex(bm25.DefaultConfig())
	c, err := cache.New(nil)
	require.NoError(t, err)
	vectors := vectorstore.NewHNSWStore()
	reg := parser.NewRegistry()
	t.Cleanup(reg.Close)
	return New(cfg, reg, c, idx, vectors, fakeEmbedder{}), idx, vectors
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunIndexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, idx, vectors := newTestIndexer(t)
	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.UnitsAdded)
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.EqualValues(t, 1, stats.CacheMisses)
	assert.Equal(t, 1, idx.NumDocs())

	all, err := vectors.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunSecondPassIsNoOpWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, idx, _ := newTestIndexer(t)
	_, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)

	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed, "an unchanged file still goes through the cache and counts as indexed")
	assert.EqualValues(t, 1, stats.CacheHits, "idempotence: cache_hits == total_files on an unchanged re-run")
	assert.EqualValues(t, 0, stats.CacheMisses)
	assert.Equal(t, 0, stats.UnitsAdded)
	assert.Equal(t, 0, stats.UnitsUpdated)
	assert.Equal(t, 1, idx.NumDocs())
}

func TestRunRenameProducesNoBM25Churn(t *testing.T) {
	dir := t.TempDir()
	content := "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n"
	writeFile(t, dir, "old.go", content)

	ix, idx, vectors := newTestIndexer(t)
	first, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 1, first.UnitsAdded)

	units := ix.AllUnits()
	require.Len(t, units, 1)
	originalID := units[0].ID

	require.NoError(t, os.Remove(filepath.Join(dir, "old.go")))
	writeFile(t, dir, "new.go", content)

	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.UnitsAdded, "a pure rename mints no new ids")
	assert.Equal(t, 0, stats.UnitsUpdated)
	assert.Equal(t, 0, stats.UnitsDeleted)
	assert.Equal(t, 1, idx.NumDocs(), "renamed unit keeps the same BM25 document, not delete+re-add")

	renamed := ix.AllUnits()
	require.Len(t, renamed, 1)
	assert.Equal(t, originalID, renamed[0].ID, "rename preserves the unit's stable id")
	assert.Equal(t, "new.go", renamed[0].FilePath)

	found, _, ok := ix.Lookup(originalID)
	assert.True(t, ok)
	assert.Equal(t, "new.go", found.FilePath)

	all, err := vectors.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, originalID, all[0])
}

func TestRunReparsesModifiedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, idx, _ := newTestIndexer(t)
	_, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)

	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hello, world\"\n}\n")
	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.UnitsUpdated)
	assert.Equal(t, 1, idx.NumDocs(), "same unit identity is updated in place, not duplicated")
}

func TestRunRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, idx, vectors := newTestIndexer(t)
	_, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.go")))
	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesDeleted)
	assert.Equal(t, 0, idx.NumDocs())

	all, err := vectors.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunSkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0x00}, 0o644))

	ix, idx, _ := newTestIndexer(t)
	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 0, idx.NumDocs())
}

func TestLookupAndAllUnitsReflectLatestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, _, _ := newTestIndexer(t)
	_, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)

	units := ix.AllUnits()
	require.Len(t, units, 1)

	found, _, ok := ix.Lookup(units[0].ID)
	assert.True(t, ok)
	assert.Equal(t, units[0].Name, found.Name)

	_, _, ok = ix.Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestRunRespectsExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	writeFile(t, dir, "vendor/dep.go", "package vendor\n\nfunc Dep() {}\n")
	writeFile(t, dir, "main.go", "package main\n\nfunc Main() {}\n")

	cfg := config.Default().WithDefaultExclusions()
	idx := bm25.NewIndex(bm25.DefaultConfig())
	c, err := cache.New(nil)
	require.NoError(t, err)
	reg := parser.NewRegistry()
	t.Cleanup(reg.Close)
	ix := New(cfg, reg, c, idx, nil, nil)

	stats, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
}
