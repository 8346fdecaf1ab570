package costs

import (
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostComputation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		model  string
		in     int
		out    int
		want   float64
	}{
		{"embedding", "text-embedding-3-small", 1_000_000, 0, 0.02},
		{"chat", "gpt-4o-mini", 1_000_000, 1_000_000, 0.75},
		{"unknown model falls back", "mystery-model", 1_000_000, 0, 0.15},
		{"zero tokens", "gpt-4o-mini", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cost(DefaultPricing, tt.model, tt.in, tt.out)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTrackerRecordAndStats(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(nil, nil)

	tracker.Record(Operation{
		Type:        OpEmbedCandidate,
		Model:       "text-embedding-3-small",
		InputTokens: 500_000,
		Success:     true,
	})
	tracker.Record(Operation{
		Type:     OpEmbedCandidate,
		Model:    "text-embedding-3-small",
		CacheHit: true,
		Success:  true,
	})
	tracker.Record(Operation{
		Type:         OpGenerativeRank,
		Model:        "gpt-4o-mini",
		InputTokens:  2000,
		OutputTokens: 800,
		Success:      true,
	})

	stats := tracker.Stats()
	assert.Equal(t, 3, stats.TotalCalls)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 2, stats.CacheMisses)
	assert.InDelta(t, 1.0/3.0, stats.HitRate, 1e-9)

	embed := stats.PerType[OpEmbedCandidate]
	assert.Equal(t, 2, embed.CallCount)
	assert.Equal(t, 1, embed.CacheHitCount)
	assert.Equal(t, 500_000, embed.TotalInputUnits)
	assert.InDelta(t, 0.01, embed.TotalCost, 1e-9, "cache hit must contribute zero cost")

	gen := stats.PerType[OpGenerativeRank]
	assert.Equal(t, 1, gen.CallCount)
	assert.Greater(t, gen.TotalCost, 0.0)
}

func TestTrackerCacheHitAlwaysZeroCost(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(nil, nil)
	op := tracker.Record(Operation{
		Type:        OpEmbedTarget,
		Model:       "text-embedding-3-small",
		InputTokens: 1_000_000,
		CacheHit:    true,
		Success:     true,
	})
	assert.Zero(t, op.Cost)
	assert.Zero(t, tracker.Stats().TotalCost)
}

func TestTrackerConcurrentRecord(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(nil, nil)
	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record(Operation{
				Type:        OpEmbedCandidate,
				Model:       "text-embedding-3-small",
				InputTokens: 100,
				Success:     true,
			})
		}()
	}
	wg.Wait()

	stats := tracker.Stats()
	assert.Equal(t, n, stats.TotalCalls)
	assert.False(t, math.IsNaN(stats.TotalCost))
	assert.Len(t, tracker.Ledger(), n)
}

func TestExportParquet(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(nil, nil)
	tracker.Record(Operation{
		Type:        OpGenerativeRank,
		Model:       "gpt-4o-mini",
		InputTokens: 1200,
		Success:     true,
	})

	path := filepath.Join(t.TempDir(), "ledger.parquet")
	require.NoError(t, tracker.ExportParquet(path))
}
