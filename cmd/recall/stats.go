package main

import (
	"time"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/indexer"
	"github.com/recallhq/recall/internal/metrics"
)

func runFromStats(project string, stats indexer.Stats) metrics.Run {
	var avgMs float64
	if stats.FilesIndexed > 0 {
		avgMs = stats.Duration.Seconds() * 1000 / float64(stats.FilesIndexed)
	}
	return metrics.Run{
		ProjectName:      project,
		FilesIndexed:     stats.FilesIndexed,
		TotalTimeSeconds: stats.Duration.Seconds(),
		AvgTimePerFileMs: avgMs,
		TotalSizeBytes:   stats.TotalSizeBytes,
		Timestamp:        time.Now(),
	}
}

// countCandidateFiles reuses the indexer's own scan so the estimate
// command sizes a run the exact same way Run would, without parsing or
// indexing anything.
func countCandidateFiles(cfg *config.Config) (int, []string, error) {
	tmp := indexer.New(cfg, nil, nil, nil, nil, nil)
	candidates, err := tmp.CandidateFiles(cfg.Project.Root)
	if err != nil {
		return 0, nil, err
	}
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return len(candidates), paths, nil
}
