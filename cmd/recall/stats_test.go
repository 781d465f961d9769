package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/indexer"
)

func TestRunFromStatsComputesAveragePerFile(t *testing.T) {
	r := runFromStats("proj", indexer.Stats{
		FilesIndexed: 4,
		Duration:     2 * time.Second,
	})
	assert.Equal(t, "proj", r.ProjectName)
	assert.Equal(t, 4, r.FilesIndexed)
	assert.InDelta(t, 500.0, r.AvgTimePerFileMs, 0.001)
}

func TestRunFromStatsZeroFilesIndexedAvoidsDivideByZero(t *testing.T) {
	r := runFromStats("proj", indexer.Stats{FilesIndexed: 0, Duration: time.Second})
	assert.Zero(t, r.AvgTimePerFileMs)
}

func TestCountCandidateFilesMatchesScannedTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n"), 0o644))

	cfg := config.Default()
	cfg.Project.Root = dir

	count, paths, err := countCandidateFiles(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, paths, 2)
}
