package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/config"
)

func TestAddWatchesSkipsExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	cfg := config.Default()
	cfg.Project.Root = dir
	cfg.WithDefaultExclusions()

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addWatches(watcher, cfg))

	watched := watcher.WatchList()
	for _, w := range watched {
		require.NotContains(t, w, filepath.Join(dir, "node_modules"))
	}
}
