package level

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bird-count/internal/protocol"
)

func TestGenerate_RangesWidenWithRound(t *testing.T) {
	t.Parallel()

	g := NewGenerator(1, 10, 10) // 足够大的网格，避免容量截断

	for round := 1; round <= 5; round++ {
		lo, hi := TargetRange(round)
		for range 200 {
			data := g.Generate(round)
			assert.Equal(t, round, data.Round)
			assert.GreaterOrEqual(t, data.TargetCount, lo)
			assert.LessOrEqual(t, data.TargetCount, hi)
			assert.Equal(t, DecoyCount(round), data.DecoyCount)
		}
	}
}

func TestTargetRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		round  int
		lo, hi int
	}{
		{1, 5, 10},
		{2, 7, 14},
		{5, 13, 26},
	}
	for _, tt := range tests {
		lo, hi := TargetRange(tt.round)
		assert.Equal(t, tt.lo, lo, "round %d", tt.round)
		assert.Equal(t, tt.hi, hi, "round %d", tt.round)
	}
}

func TestGenerate_PlacementsCoverGrid(t *testing.T) {
	t.Parallel()

	g := NewGenerator(7, 0, 0)
	data := g.Generate(1)

	require.Len(t, data.Placements, 30)
	seen := make(map[protocol.Spot]bool)
	for _, s := range data.Placements {
		assert.False(t, seen[s], "duplicate spot %+v", s)
		seen[s] = true
		assert.Equal(t, 0, (s.X-originX)%stepX)
		assert.Equal(t, 0, (s.Y-originY)%stepY)
	}
	assert.True(t, seen[protocol.Spot{X: 10, Y: 10}])
	assert.True(t, seen[protocol.Spot{X: 90, Y: 85}])
}

func TestGenerate_NeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	g := NewGenerator(3, 6, 5)
	for round := 1; round <= 8; round++ {
		for range 100 {
			data := g.Generate(round)
			assert.LessOrEqual(t, data.TargetCount+data.DecoyCount, g.Capacity())
			assert.GreaterOrEqual(t, data.DecoyCount, 0)
			assert.GreaterOrEqual(t, len(data.Placements), data.TargetCount+data.DecoyCount)
		}
	}
}

func TestGenerate_TinyGridClampsTarget(t *testing.T) {
	t.Parallel()

	g := NewGenerator(3, 2, 2)
	data := g.Generate(5)

	assert.Equal(t, 4, data.TargetCount)
	assert.Equal(t, 0, data.DecoyCount)
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewGenerator(42, 6, 5)
	b := NewGenerator(42, 6, 5)
	for round := 1; round <= 5; round++ {
		assert.Equal(t, a.Generate(round), b.Generate(round))
	}
}

func TestGenerate_InvalidRound(t *testing.T) {
	t.Parallel()

	data := NewGenerator(1, 6, 5).Generate(0)
	assert.Equal(t, 1, data.Round)
}

func TestGenerate_Concurrent(t *testing.T) {
	t.Parallel()

	g := NewRandomGenerator(6, 5)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			_ = g.Generate(round%5 + 1)
		}(i)
	}
	wg.Wait()
}
