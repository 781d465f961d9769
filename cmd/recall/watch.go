package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/debug"
)

// runWatcher re-indexes the project root on every debounced batch of
// filesystem events. Unlike the teacher's FileWatcher (which tracks
// per-file create/write/remove and feeds each into its own incremental
// update path), recall's Indexer.Run already re-scans and diffs the
// whole tree in one incremental pass, so the watcher's only job is
// noticing that *something* changed and deciding when to call Run
// again — grounded on
// standardbeagle-lci/internal/indexing/watcher.go's addWatches
// (recursive directory watch registration, symlink-cycle guard) and
// eventDebouncer (single pending timer, coalesced into one flush).
func runWatcher(ctx context.Context, cfg *config.Config, p *pipeline) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatches(watcher, cfg); err != nil {
		return err
	}

	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	var mu sync.Mutex
	var timer *time.Timer
	reindex := func() {
		stats, err := p.indexer.Run(ctx, cfg.Project.Root)
		if err != nil {
			debug.LogWarn("watch re-index failed: %v\n", err)
			return
		}
		if err := p.metrics.Append(ctx, runFromStats(cfg.Project.Name, stats)); err != nil {
			debug.LogWarn("failed to record watch run metrics: %v\n", err)
		}
		debug.LogIndexing("watch re-index: %d files, %d deleted, %v\n", stats.FilesIndexed, stats.FilesDeleted, stats.Duration)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Op&fsnotify.Create != 0 {
				_ = watcher.Add(event.Name)
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reindex)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogWarn("watch error: %v\n", err)
		}
	}
}

// addWatches registers every directory under root, applying the same
// exclude patterns as the scanner so excluded trees (node_modules/,
// .git/, vendor/) don't generate a storm of ignored events.
func addWatches(watcher *fsnotify.Watcher, cfg *config.Config) error {
	visited := make(map[string]bool)
	return filepath.Walk(cfg.Project.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if path == cfg.Project.Root {
			return watcher.Add(path)
		}
		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true
		}
		rel, _ := filepath.Rel(cfg.Project.Root, path)
		rel = filepath.ToSlash(rel)
		if config.MatchAny(cfg.Exclude, rel+"/") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
