package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestETAIsZeroBeforeAnyProgress(t *testing.T) {
	tr := NewTracker(100)
	assert.Equal(t, time.Duration(0), tr.ETA())
}

func TestETAIsZeroWhenComplete(t *testing.T) {
	tr := NewTracker(10)
	tr.Update(10)
	assert.Equal(t, time.Duration(0), tr.ETA())
}

func TestETAScalesRemainingByPerFileElapsed(t *testing.T) {
	tr := NewTracker(10)
	tr.startedAt = time.Now().Add(-10 * time.Second)
	tr.Update(5)

	eta := tr.ETA()
	// elapsed(~10s)/completed(5) * remaining(5) ~= 10s
	assert.InDelta(t, 10*time.Second, eta, float64(500*time.Millisecond))
}

func TestProgressReportsCompletedOverTotal(t *testing.T) {
	tr := NewTracker(4)
	tr.Update(1)
	assert.InDelta(t, 0.25, tr.Progress(), 0.001)
}
