// Package selector picks the highest-impact module subset that fits a
// content budget: the 0/1 knapsack with impact as value and content
// size as weight. Small instances get an exact dynamic program over
// integer-scaled sizes; large ones fall back to a deterministic greedy
// pass over value/weight ratios. The strategy used is reported in the
// result so callers can label the selection honestly.
package selector

import (
	"sort"

	"promptpack/internal/core/errors"
)

// maxDPCells bounds the DP table; beyond it the greedy path runs.
const maxDPCells = 4_000_000

const (
	StrategyDP     = "dp"
	StrategyGreedy = "greedy"
)

type Item struct {
	ID    string
	Size  int64
	Value float64
}

type Result struct {
	Selected   []Item
	TotalSize  int64
	TotalValue float64
	Strategy   string
}

// Select returns a feasible selection under budget. The result never
// exceeds the budget: when even the smallest item is too large the
// selection is empty. Budget and size misconfiguration fail fast with
// a validation error, distinct from per-file analysis failures.
func Select(items []Item, budget int64) (Result, error) {
	if budget <= 0 {
		return Result{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "selection budget must be positive"),
			errors.CtxBudget, budget,
		)
	}
	for _, it := range items {
		if it.Size < 0 {
			err := errors.New(errors.CodeValidationError, "module size must not be negative")
			err = errors.AddContext(err, errors.CtxModule, it.ID)
			return Result{}, err
		}
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var res Result
	scale, ok := dpScale(sorted, budget)
	if ok {
		res = selectDP(sorted, budget, scale)
	} else {
		res = selectGreedy(sorted, budget)
	}

	// Spend leftover budget on unchosen items in rank order. Under
	// exact DP only zero-value items can still fit, which keeps a
	// large-enough budget selecting the full set.
	res = fillRemainder(res, sorted, budget)

	sort.SliceStable(res.Selected, func(i, j int) bool {
		a, b := res.Selected[i], res.Selected[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.ID < b.ID
	})
	return res, nil
}

// dpScale finds the power-of-two divisor that makes the DP table fit.
// The second return is false when no reasonable scale exists.
func dpScale(items []Item, budget int64) (int64, bool) {
	if len(items) == 0 {
		return 1, true
	}
	maxSize := int64(0)
	for _, it := range items {
		if it.Size > maxSize {
			maxSize = it.Size
		}
	}
	scale := int64(1)
	for {
		cells := (budget/scale + 1) * int64(len(items))
		if cells <= maxDPCells {
			return scale, true
		}
		scale *= 2
		// Once the divisor passes the largest item every weight rounds
		// to one and the discretization says nothing about sizes;
		// prefer the greedy path instead.
		if scale > maxSize {
			return 0, false
		}
	}
}

func selectDP(items []Item, budget, scale int64) Result {
	n := len(items)
	w := int(budget / scale)

	weights := make([]int, n)
	for i, it := range items {
		// Round up so the discretized solution never overshoots the
		// real budget.
		weights[i] = int((it.Size + scale - 1) / scale)
	}

	dp := make([]float64, w+1)
	take := make([][]bool, n)
	for i := range take {
		take[i] = make([]bool, w+1)
	}

	for i := 0; i < n; i++ {
		wi := weights[i]
		if wi > w {
			continue
		}
		for c := w; c >= wi; c-- {
			candidate := dp[c-wi] + items[i].Value
			// Strict improvement only: on ties the item stays out, so
			// reconstruction prefers lexically earlier items.
			if candidate > dp[c] {
				dp[c] = candidate
				take[i][c] = true
			}
		}
	}

	res := Result{Strategy: StrategyDP}
	c := w
	for i := n - 1; i >= 0; i-- {
		if take[i][c] {
			res.Selected = append(res.Selected, items[i])
			res.TotalSize += items[i].Size
			res.TotalValue += items[i].Value
			c -= weights[i]
		}
	}
	return res
}

func selectGreedy(items []Item, budget int64) Result {
	ranked := make([]Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ra, rb := ratio(a), ratio(b)
		if ra != rb {
			return ra > rb
		}
		return a.ID < b.ID
	})

	res := Result{Strategy: StrategyGreedy}
	for _, it := range ranked {
		if res.TotalSize+it.Size > budget {
			continue
		}
		res.Selected = append(res.Selected, it)
		res.TotalSize += it.Size
		res.TotalValue += it.Value
	}
	return res
}

func fillRemainder(res Result, items []Item, budget int64) Result {
	chosen := make(map[string]bool, len(res.Selected))
	for _, it := range res.Selected {
		chosen[it.ID] = true
	}

	leftovers := make([]Item, 0)
	for _, it := range items {
		if !chosen[it.ID] {
			leftovers = append(leftovers, it)
		}
	}
	sort.SliceStable(leftovers, func(i, j int) bool {
		a, b := leftovers[i], leftovers[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.ID < b.ID
	})

	for _, it := range leftovers {
		if res.TotalSize+it.Size > budget {
			continue
		}
		res.Selected = append(res.Selected, it)
		res.TotalSize += it.Size
		res.TotalValue += it.Value
	}
	return res
}

func ratio(it Item) float64 {
	if it.Size <= 0 {
		// Free items always rank first.
		return it.Value + 1e18
	}
	return it.Value / float64(it.Size)
}
