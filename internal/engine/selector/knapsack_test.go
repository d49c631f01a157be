package selector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpack/internal/core/errors"
)

func ids(res Result) []string {
	out := make([]string, 0, len(res.Selected))
	for _, it := range res.Selected {
		out = append(out, it.ID)
	}
	return out
}

func TestSelect_PrefersImpactUnderTightBudget(t *testing.T) {
	items := []Item{
		{ID: "a.py", Size: 10, Value: 0},
		{ID: "b.py", Size: 10, Value: 1},
		{ID: "c.py", Size: 10, Value: 1},
	}

	res, err := Select(items, 15)
	require.NoError(t, err)

	assert.Equal(t, StrategyDP, res.Strategy)
	assert.Equal(t, []string{"b.py"}, ids(res))
	assert.Equal(t, int64(10), res.TotalSize)
	assert.InDelta(t, 1.0, res.TotalValue, 1e-9)
}

func TestSelect_FullBudgetSelectsEverything(t *testing.T) {
	items := []Item{
		{ID: "a.py", Size: 10, Value: 0},
		{ID: "b.py", Size: 10, Value: 1},
		{ID: "c.py", Size: 10, Value: 1},
	}

	res, err := Select(items, 30)
	require.NoError(t, err)

	// Zero-impact modules still ride along once the valuable ones fit.
	assert.Equal(t, []string{"b.py", "c.py", "a.py"}, ids(res))
	assert.Equal(t, int64(30), res.TotalSize)
}

func TestSelect_NeverExceedsBudget(t *testing.T) {
	items := []Item{
		{ID: "big.py", Size: 100, Value: 10},
		{ID: "mid.py", Size: 40, Value: 3},
		{ID: "small.py", Size: 20, Value: 2},
	}

	res, err := Select(items, 70)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.TotalSize, int64(70))
	assert.Equal(t, []string{"mid.py", "small.py"}, ids(res))
	assert.InDelta(t, 5.0, res.TotalValue, 1e-9)
}

func TestSelect_DPBeatsGreedyOrdering(t *testing.T) {
	// Greedy by ratio would take the small high-ratio item and strand
	// the remaining capacity; the exact solution takes the pair.
	items := []Item{
		{ID: "a.py", Size: 6, Value: 6},
		{ID: "b.py", Size: 5, Value: 4.5},
		{ID: "c.py", Size: 5, Value: 4.5},
	}

	res, err := Select(items, 10)
	require.NoError(t, err)

	assert.Equal(t, StrategyDP, res.Strategy)
	assert.Equal(t, []string{"b.py", "c.py"}, ids(res))
	assert.InDelta(t, 9.0, res.TotalValue, 1e-9)
}

func TestSelect_SmallestItemOverBudget(t *testing.T) {
	items := []Item{
		{ID: "huge.py", Size: 500, Value: 9},
	}

	res, err := Select(items, 100)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.Equal(t, int64(0), res.TotalSize)
}

func TestSelect_EmptyInput(t *testing.T) {
	res, err := Select(nil, 100)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
}

func TestSelect_InvalidBudget(t *testing.T) {
	_, err := Select([]Item{{ID: "a.py", Size: 1, Value: 1}}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = Select([]Item{{ID: "a.py", Size: 1, Value: 1}}, -5)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestSelect_NegativeSize(t *testing.T) {
	_, err := Select([]Item{{ID: "a.py", Size: -1, Value: 1}}, 10)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestSelect_TieBreaksAreLexical(t *testing.T) {
	items := []Item{
		{ID: "z.py", Size: 10, Value: 2},
		{ID: "m.py", Size: 10, Value: 2},
		{ID: "a.py", Size: 10, Value: 2},
	}

	res, err := Select(items, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, ids(res))
}

func TestSelect_GreedyFallbackOnLargeInstances(t *testing.T) {
	// A budget far beyond what power-of-two scaling can compress
	// forces the greedy path.
	items := make([]Item, 200)
	for i := range items {
		items[i] = Item{
			ID:    fmt.Sprintf("mod%03d.py", i),
			Size:  int64(1 + i),
			Value: float64(i % 7),
		}
	}

	res, err := Select(items, 1<<40)
	require.NoError(t, err)

	assert.Equal(t, StrategyGreedy, res.Strategy)
	// Everything fits under an effectively unlimited budget.
	assert.Len(t, res.Selected, len(items))
}

func TestSelect_Deterministic(t *testing.T) {
	items := []Item{
		{ID: "core/api.py", Size: 30, Value: 4},
		{ID: "core/db.py", Size: 25, Value: 4},
		{ID: "util/log.py", Size: 15, Value: 1},
		{ID: "main.py", Size: 20, Value: 0},
	}

	first, err := Select(items, 60)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Select(items, 60)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
		assert.Equal(t, first.TotalSize, again.TotalSize)
	}
}
