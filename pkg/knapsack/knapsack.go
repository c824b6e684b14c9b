package knapsack

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatchedInput is returned when weights and values differ in length.
	ErrMismatchedInput = errors.New("weights and values must have the same length")
	// ErrNegativeInput is returned for a negative weight or capacity.
	ErrNegativeInput = errors.New("weights and capacity must be non-negative")
)

// Result is the optimum of a 0/1 knapsack instance.
type Result struct {
	Value    float64
	Weight   int
	Selected []int
}

// Solve runs the exact 0/1 knapsack dynamic program. Selected holds item
// indices in ascending order. Reconstruction walks from the last item back and
// takes item i only when dp[i][w] differs from dp[i-1][w]; a later item that
// merely ties an earlier optimum is therefore left out.
func Solve(weights []int, values []float64, capacity int) (Result, error) {
	if len(weights) != len(values) {
		return Result{}, fmt.Errorf("%w: %d weights, %d values", ErrMismatchedInput, len(weights), len(values))
	}
	if capacity < 0 {
		return Result{}, fmt.Errorf("%w: capacity %d", ErrNegativeInput, capacity)
	}
	for i, w := range weights {
		if w < 0 {
			return Result{}, fmt.Errorf("%w: weight[%d]=%d", ErrNegativeInput, i, w)
		}
	}

	n := len(weights)
	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, capacity+1)
	}
	for i := 1; i <= n; i++ {
		wi, vi := weights[i-1], values[i-1]
		for w := 0; w <= capacity; w++ {
			dp[i][w] = dp[i-1][w]
			if wi <= w {
				if candidate := dp[i-1][w-wi] + vi; candidate > dp[i][w] {
					dp[i][w] = candidate
				}
			}
		}
	}

	selected := make([]int, 0)
	w := capacity
	used := 0
	for i := n; i > 0; i-- {
		if dp[i][w] != dp[i-1][w] {
			selected = append(selected, i-1)
			w -= weights[i-1]
			used += weights[i-1]
		}
	}
	for l, r := 0, len(selected)-1; l < r; l, r = l+1, r-1 {
		selected[l], selected[r] = selected[r], selected[l]
	}

	return Result{Value: dp[n][capacity], Weight: used, Selected: selected}, nil
}
