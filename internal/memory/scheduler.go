package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/recallhq/recall/internal/debug"
)

// Scheduler runs a Pruner on a timer. Grounded on
// ternarybob-quaero/internal/services/scheduler/scheduler_service.go's
// *cron.Cron-backed Service, trimmed to the one job this package needs
// (the orphan sweep rides along with every tick rather than getting
// its own registered job, since both are cheap full-table scans).
type Scheduler struct {
	cron   *cron.Cron
	pruner *Pruner

	mu      sync.Mutex
	running bool
	entryID cron.EntryID
}

// NewScheduler wraps pruner in a cron-driven runner. It does not start
// ticking until Start is called.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{cron: cron.New(), pruner: pruner}
}

// Start begins ticking on cronExpr (e.g. "@every 1h"). An empty
// expression defaults to hourly, matching §4.8's "runs on a timer"
// without prescribing a specific cadence.
func (s *Scheduler) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("memory scheduler already running")
	}
	if cronExpr == "" {
		cronExpr = "@every 1h"
	}

	id, err := s.cron.AddFunc(cronExpr, func() {
		ctx := context.Background()
		if _, err := s.pruner.PruneExpired(ctx, Options{}); err != nil {
			debug.LogWarn("scheduled prune failed: %v", err)
			return
		}
		if _, err := s.pruner.PruneOrphans(ctx); err != nil {
			debug.LogWarn("scheduled orphan cleanup failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule prune job: %w", err)
	}

	s.entryID = id
	s.cron.Start()
	s.running = true
	debug.LogPrune("scheduler started (%s)", cronExpr)
	return nil
}

// Stop halts the scheduler and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Remove(s.entryID)
	<-s.cron.Stop().Done()
	s.running = false
	debug.LogPrune("scheduler stopped")
}

// TriggerNow runs PruneExpired immediately, outside the cron cadence.
func (s *Scheduler) TriggerNow(ctx context.Context, opts Options) (Result, error) {
	return s.pruner.PruneExpired(ctx, opts)
}
