package memory

import (
	"context"
	"sync"
	"time"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/debug"
	"github.com/recallhq/recall/internal/types"
)

// Stats is the pruner's get_stats surface (§4.8).
type Stats struct {
	TotalPrunes      int
	TotalDeleted     int
	LastPruneTime    time.Time
	LastPruneDeleted int
}

// Options parameterizes a single PruneExpired call. A zero TTLHours
// falls back to the configured session TTL.
type Options struct {
	TTLHours int
	DryRun   bool
}

// Result is what one PruneExpired pass found and (unless DryRun) did.
type Result struct {
	Candidates []types.Memory
	Deleted    []string
}

// Pruner enforces the context_level retention policy of §4.8:
// SESSION_STATE is TTL-eligible, USER_PREFERENCE/PROJECT_CONTEXT are
// never stale-pruned, everything else is stale-prunable after
// days_unused with use_count == 0. A 24h safety gate overrides every
// TTL: a memory touched within the last day is never deleted.
type Pruner struct {
	store Store
	cfg   config.Memory
	now   func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewPruner builds a Pruner against store using cfg's TTL/stale/safety
// defaults (§4.8, normally config.Default().Memory).
func NewPruner(store Store, cfg config.Memory) *Pruner {
	return &Pruner{store: store, cfg: cfg, now: time.Now}
}

// PruneExpired runs the full protocol: enumerate candidates, apply the
// safety gate, delete survivors (unless DryRun), update counters.
func (p *Pruner) PruneExpired(ctx context.Context, opts Options) (Result, error) {
	now := p.now()
	ttl := time.Duration(opts.TTLHours) * time.Hour
	if opts.TTLHours == 0 {
		ttl = time.Duration(p.cfg.SessionTTLHours) * time.Hour
	}
	safetyWindow := time.Duration(p.cfg.SafetyWindowHours) * time.Hour
	staleAfter := time.Duration(p.cfg.StaleDays) * 24 * time.Hour

	sessionCandidates, err := p.enumerate(ctx, types.ContextLevelSessionState)
	if err != nil {
		return Result{}, err
	}
	otherCandidates, err := p.enumerate(ctx, types.ContextLevelOther)
	if err != nil {
		return Result{}, err
	}

	var candidates []types.Memory
	for _, m := range sessionCandidates {
		if now.Sub(m.LastActivity()) >= ttl {
			candidates = append(candidates, m)
		}
	}
	for _, m := range otherCandidates {
		if m.UseCount == 0 && now.Sub(m.LastActivity()) >= staleAfter {
			candidates = append(candidates, m)
		}
	}
	// USER_PREFERENCE and PROJECT_CONTEXT are never stale-pruned (§4.8);
	// they are simply never enumerated above.

	var survivors []types.Memory
	for _, m := range candidates {
		if m.LastUsed != nil && now.Sub(*m.LastUsed) < safetyWindow {
			continue // safety gate: recently used, never delete regardless of TTL
		}
		survivors = append(survivors, m)
	}

	result := Result{Candidates: survivors}
	if opts.DryRun {
		debug.LogPrune("dry_run: %d candidate(s), 0 deleted", len(survivors))
		return result, nil
	}

	if len(survivors) > 0 {
		ids := make([]string, len(survivors))
		for i, m := range survivors {
			ids[i] = m.ID
		}
		if err := p.store.Delete(ctx, ids); err != nil {
			return result, err
		}
		result.Deleted = ids
	}

	p.mu.Lock()
	p.stats.TotalPrunes++
	p.stats.TotalDeleted += len(result.Deleted)
	p.stats.LastPruneTime = now
	p.stats.LastPruneDeleted = len(result.Deleted)
	p.mu.Unlock()

	debug.LogPrune("pruned %d memor(y/ies) (%d candidates evaluated)", len(result.Deleted), len(candidates))
	return result, nil
}

// enumerate implements §4.8 step 1: prefer the store-side criteria
// query, fall back to a full scan filtered client-side if the store
// can't push context_level down (ListByContextLevel returning an error
// is treated as "unsupported", not a hard failure).
func (p *Pruner) enumerate(ctx context.Context, level types.ContextLevel) ([]types.Memory, error) {
	memories, err := p.store.ListByContextLevel(ctx, level)
	if err == nil {
		return memories, nil
	}
	all, fallbackErr := p.store.ListAll(ctx)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	var out []types.Memory
	for _, m := range all {
		if m.ContextLevel == level {
			out = append(out, m)
		}
	}
	return out, nil
}

// PruneOrphans removes usage-tracking rows whose memory no longer
// exists (§4.8's periodic orphan cleanup), independent of the TTL pass.
func (p *Pruner) PruneOrphans(ctx context.Context) (int, error) {
	n, err := p.store.DeleteOrphanUsageRows(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		debug.LogPrune("removed %d orphan usage row(s)", n)
	}
	return n, nil
}

// GetStats returns the counters exposed by get_stats.
func (p *Pruner) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
