package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateWithNoHistoryDefaultsTo100MsPerFile(t *testing.T) {
	s := newTestStore(t)
	e := NewEstimator(s, 10)

	min, max, err := e.Estimate(context.Background(), 100, "p")
	require.NoError(t, err)
	// base = 100ms * 100 files / 1000 = 10s
	assert.InDelta(t, 8.0, min, 0.01)
	assert.InDelta(t, 15.0, max, 0.01)
}

func TestEstimateUsesMeanOfRecentRunsPerFileTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", AvgTimePerFileMs: 50, Timestamp: time.Now()}))
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", AvgTimePerFileMs: 150, Timestamp: time.Now()}))

	e := NewEstimator(s, 10)
	min, max, err := e.Estimate(ctx, 100, "p")
	require.NoError(t, err)
	// mean = 100ms/file -> base = 10s, same as the no-history default
	assert.InDelta(t, 8.0, min, 0.01)
	assert.InDelta(t, 15.0, max, 0.01)
}

func TestEstimateWindowLimitsHistoryConsidered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	// Oldest run would skew the mean if included; window=1 should only
	// see the newest.
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", AvgTimePerFileMs: 1000, Timestamp: time.Now().Add(-time.Hour)}))
	require.NoError(t, s.Append(ctx, Run{ProjectName: "p", AvgTimePerFileMs: 100, Timestamp: time.Now()}))

	e := NewEstimator(s, 1)
	min, _, err := e.Estimate(ctx, 10, "p")
	require.NoError(t, err)
	// base = 100ms * 10 / 1000 = 1s, min = 0.8s
	assert.InDelta(t, 0.8, min, 0.01)
}
