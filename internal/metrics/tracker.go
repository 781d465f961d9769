package metrics

import (
	"sync"
	"time"
)

// Tracker reports elapsed/ETA progress for one in-flight indexing run.
// Grounded on Aman-CERP-amanmcp/internal/ui/progress.go's
// ProgressTracker, reduced to the exact elapsed/completed*remaining
// formula spec.md §4.9 specifies (no exponential smoothing — the
// source's smoothing exists for a live terminal display this codebase
// has no equivalent of).
type Tracker struct {
	mu        sync.Mutex
	total     int
	completed int
	startedAt time.Time
}

// NewTracker starts a tracker for a run indexing total files.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total, startedAt: time.Now()}
}

// Update records that completed files have finished so far.
func (t *Tracker) Update(completed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = completed
}

// ETA returns elapsed/completed*remaining, or 0 if nothing has
// completed yet or the run is already done.
func (t *Tracker) ETA() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed <= 0 || t.completed >= t.total {
		return 0
	}
	elapsed := time.Since(t.startedAt)
	remaining := t.total - t.completed
	perFile := elapsed / time.Duration(t.completed)
	return perFile * time.Duration(remaining)
}

// Elapsed returns the time since the tracker started.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.startedAt)
}

// Progress returns completed/total in [0,1], or 0 when total is 0.
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.completed) / float64(t.total)
}
