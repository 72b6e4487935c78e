package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJacobiEigenSymmetric2x2(t *testing.T) {
	a := [][]float64{{2, 1}, {1, 2}}
	values, vectors := jacobiEigen(a)
	require.Len(t, values, 2)

	k := argmaxFirst(values)
	assert.InDelta(t, 3, values[k], 1e-12)
	assert.InDelta(t, 1, values[1-k], 1e-12)
	assert.InDelta(t, math.Abs(vectors[0][k]), math.Abs(vectors[1][k]), 1e-12)
	assert.Equal(t, [][]float64{{2, 1}, {1, 2}}, a, "input must not be modified")
}

func TestLeadingComponentCovarianceSide(t *testing.T) {
	// Five samples of two perfectly correlated variables.
	s := []float64{3, -1, -1, -1, 0}
	x := make([][]float64, len(s))
	for i, v := range s {
		x[i] = []float64{v, 2 * v}
	}

	scores := leadingComponent(x)
	require.Len(t, scores, len(s))
	for i, v := range s {
		assert.InDelta(t, math.Sqrt(5)*v, scores[i], 1e-9)
	}
}

func TestLeadingComponentGramSide(t *testing.T) {
	x := [][]float64{{1, 2, 3}, {-0.5, -1, -1.5}}

	scores := leadingComponent(x)
	require.Len(t, scores, 2)
	assert.InDelta(t, math.Sqrt(14), scores[0], 1e-9)
	assert.InDelta(t, -0.5*math.Sqrt(14), scores[1], 1e-9)
}

func TestLeadingComponentOrientation(t *testing.T) {
	s := []float64{-4, 1, 1, 1, 1}
	x := make([][]float64, len(s))
	for i, v := range s {
		x[i] = []float64{v, v}
	}

	scores := leadingComponent(x)
	assert.Greater(t, scores[0], 0.0, "largest magnitude entry must be positive")
}

func TestLeadingComponentZeroMatrix(t *testing.T) {
	x := [][]float64{{0, 0}, {0, 0}, {0, 0}}
	assert.Equal(t, []float64{0, 0, 0}, leadingComponent(x))
}

func TestArgmaxFirstTies(t *testing.T) {
	assert.Equal(t, 1, argmaxFirst([]float64{1, 3, 3}))
	assert.Equal(t, 0, argmaxFirst([]float64{2, 2}))
}
