package distance

import "math"

// DefaultDTWWindow is the warping half-width used when none is configured.
const DefaultDTWWindow = 5

// LocalCost compares two samples inside the DTW recurrence.
type LocalCost func(x, y float64) float64

// SquaredDifference is |x-y|^2.
func SquaredDifference(x, y float64) float64 {
	d := x - y
	return d * d
}

// DTW computes the windowed dynamic time warping cost between a and b. Interior cells are
// restricted to |i-j| <= window; the first row and column always hold cumulative costs.
// Cells outside the band stay at +Inf and are skipped when taking the minimum.
func DTW(a, b []float64, window int, local LocalCost) float64 {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return math.NaN()
	}
	if local == nil {
		local = SquaredDifference
	}
	if window < 0 {
		window = 0
	}

	inf := math.Inf(1)
	cost := make([][]float64, m)
	for i := range cost {
		row := make([]float64, n)
		for j := range row {
			row[j] = inf
		}
		cost[i] = row
	}

	cost[0][0] = local(a[0], b[0])
	for i := 1; i < m; i++ {
		cost[i][0] = cost[i-1][0] + local(a[i], b[0])
	}
	for j := 1; j < n; j++ {
		cost[0][j] = cost[0][j-1] + local(a[0], b[j])
	}

	for i := 1; i < m; i++ {
		lo := max(1, i-window)
		hi := min(n-1, i+window)
		for j := lo; j <= hi; j++ {
			best := min(cost[i-1][j-1], cost[i][j-1], cost[i-1][j])
			if math.IsInf(best, 1) {
				continue
			}
			cost[i][j] = best + local(a[i], b[j])
		}
	}
	return cost[m-1][n-1]
}
