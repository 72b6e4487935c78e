package distance

import (
	"math"
	"sort"
)

// Pearson returns the Pearson correlation coefficient, or NaN when either series is constant,
// the lengths differ or fewer than two samples are given.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n < 2 || len(b) != n {
		return math.NaN()
	}

	meanA, meanB := mean(a), mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	r := cov / math.Sqrt(varA*varB)
	return clampUnit(r)
}

// Spearman returns the rank correlation, ranking ties by their average position.
func Spearman(a, b []float64) float64 {
	if len(a) < 2 || len(b) != len(a) {
		return math.NaN()
	}
	return Pearson(averageRanks(a), averageRanks(b))
}

// Kendall returns Kendall's tau-b, which corrects for ties in either series.
func Kendall(a, b []float64) float64 {
	n := len(a)
	if n < 2 || len(b) != n {
		return math.NaN()
	}

	var concordant, discordant, tiesA, tiesB float64
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			da := sign(a[i] - a[j])
			db := sign(b[i] - b[j])
			switch {
			case da == 0 && db == 0:
			case da == 0:
				tiesA++
			case db == 0:
				tiesB++
			case da == db:
				concordant++
			default:
				discordant++
			}
		}
	}

	den := math.Sqrt((concordant + discordant + tiesA) * (concordant + discordant + tiesB))
	if den == 0 {
		return math.NaN()
	}
	return clampUnit((concordant - discordant) / den)
}

func averageRanks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return values[idx[i]] < values[idx[j]] })

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// positions i..j share the average of ranks i+1..j+1
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
