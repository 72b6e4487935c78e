package distance

import "math"

// Euclidean returns the L2 distance between two equal-length series.
func Euclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.NaN()
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cidEpsilon keeps the complexity estimate of a constant series away from zero.
const cidEpsilon = 1e-9

// complexityEstimate is sqrt(sum of squared first differences + epsilon).
func complexityEstimate(x []float64) float64 {
	sum := 0.0
	for i := 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		sum += d * d
	}
	return math.Sqrt(sum + cidEpsilon)
}

// CID is the complexity-invariant distance: the Euclidean distance scaled by the ratio of the
// larger to the smaller complexity estimate of the two series.
func CID(a, b []float64) float64 {
	ed := Euclidean(a, b)
	if math.IsNaN(ed) {
		return ed
	}
	ceA := complexityEstimate(a)
	ceB := complexityEstimate(b)
	return ed * math.Max(ceA, ceB) / math.Min(ceA, ceB)
}
