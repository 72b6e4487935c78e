package engine

import "math"

const (
	// jacobiTolerance bounds the off-diagonal norm relative to the matrix norm.
	jacobiTolerance = 1e-12
	// jacobiMaxSweeps caps the number of full cyclic sweeps.
	jacobiMaxSweeps = 100
)

// leadingComponent returns the first principal component scores of x, whose rows are samples
// and whose columns are already-centred variables. The scores equal X·v1 (= s1·u1). The
// decomposition runs on the smaller of XᵀX and XXᵀ. The result is oriented so that its entry of
// largest magnitude is positive.
func leadingComponent(x [][]float64) []float64 {
	samples := len(x)
	if samples == 0 {
		return nil
	}
	vars := len(x[0])
	scores := make([]float64, samples)
	if vars == 0 {
		return scores
	}

	if vars <= samples {
		cov := make([][]float64, vars)
		for i := range cov {
			cov[i] = make([]float64, vars)
		}
		for i := 0; i < vars; i++ {
			for j := i; j < vars; j++ {
				sum := 0.0
				for t := 0; t < samples; t++ {
					sum += x[t][i] * x[t][j]
				}
				cov[i][j] = sum
				cov[j][i] = sum
			}
		}
		values, vectors := jacobiEigen(cov)
		k := argmaxFirst(values)
		for t := 0; t < samples; t++ {
			sum := 0.0
			for j := 0; j < vars; j++ {
				sum += x[t][j] * vectors[j][k]
			}
			scores[t] = sum
		}
	} else {
		gram := make([][]float64, samples)
		for i := range gram {
			gram[i] = make([]float64, samples)
		}
		for i := 0; i < samples; i++ {
			for j := i; j < samples; j++ {
				sum := 0.0
				for v := 0; v < vars; v++ {
					sum += x[i][v] * x[j][v]
				}
				gram[i][j] = sum
				gram[j][i] = sum
			}
		}
		values, vectors := jacobiEigen(gram)
		k := argmaxFirst(values)
		singular := math.Sqrt(math.Max(values[k], 0))
		for t := 0; t < samples; t++ {
			scores[t] = singular * vectors[t][k]
		}
	}

	orient(scores)
	return scores
}

// jacobiEigen diagonalises the symmetric matrix a with cyclic Jacobi rotations. It returns the
// eigenvalues and a matrix whose columns are the matching unit eigenvectors. a is not modified.
func jacobiEigen(a [][]float64) ([]float64, [][]float64) {
	n := len(a)
	m := make([][]float64, n)
	v := make([][]float64, n)
	norm := 0.0
	for i := 0; i < n; i++ {
		m[i] = append([]float64(nil), a[i]...)
		v[i] = make([]float64, n)
		v[i][i] = 1
		for j := 0; j < n; j++ {
			norm += a[i][j] * a[i][j]
		}
	}
	norm = math.Sqrt(norm)

	for sweep := 0; sweep < jacobiMaxSweeps && norm > 0; sweep++ {
		off := 0.0
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				off += 2 * m[p][q] * m[p][q]
			}
		}
		if math.Sqrt(off) <= jacobiTolerance*norm {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				apq := m[p][q]
				if apq == 0 {
					continue
				}
				theta := (m[q][q] - m[p][p]) / (2 * apq)
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for k := 0; k < n; k++ {
					mkp, mkq := m[k][p], m[k][q]
					m[k][p] = c*mkp - s*mkq
					m[k][q] = s*mkp + c*mkq
				}
				for k := 0; k < n; k++ {
					mpk, mqk := m[p][k], m[q][k]
					m[p][k] = c*mpk - s*mqk
					m[q][k] = s*mpk + c*mqk
				}
				for k := 0; k < n; k++ {
					vkp, vkq := v[k][p], v[k][q]
					v[k][p] = c*vkp - s*vkq
					v[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = m[i][i]
	}
	return values, v
}

// argmaxFirst returns the index of the largest value; ties go to the lowest index.
func argmaxFirst(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// orient flips the sign of v so that its entry of largest magnitude is positive.
func orient(v []float64) {
	idx := -1
	largest := 0.0
	for i, x := range v {
		if a := math.Abs(x); a > largest {
			largest = a
			idx = i
		}
	}
	if idx >= 0 && v[idx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
