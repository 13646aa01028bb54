package transform

import "fmt"

// solveLinearSystem solves A x = b for x using Gauss-Jordan elimination
// with partial pivoting. A is n x n, b has n entries; both are mutated as
// scratch space. No linear-algebra library appears anywhere in the
// retrieved example pack, so this small solver is standard-library-only
// (see DESIGN.md).
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		best := abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := abs(a[r][col]); v > best {
				best, pivot = v, r
			}
		}
		if best < 1e-12 {
			return nil, fmt.Errorf("transform: singular system fitting GCPs")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		pv := a[col][col]
		for k := col; k < n; k++ {
			a[col][k] /= pv
		}
		b[col] /= pv

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[r][k] -= factor * a[col][k]
			}
			b[r] -= factor * b[col]
		}
	}
	return b, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// leastSquares solves the normal equations (AtA) x = At b for an
// overdetermined m x n system A x = b (m >= n), the standard approach for
// fitting a polynomial/helmert/projective transform to more GCPs than the
// minimum required.
func leastSquares(rows [][]float64, rhs []float64) ([]float64, error) {
	m := len(rows)
	if m == 0 {
		return nil, fmt.Errorf("transform: no rows to fit")
	}
	n := len(rows[0])

	ata := make([][]float64, n)
	for i := range ata {
		ata[i] = make([]float64, n)
	}
	atb := make([]float64, n)

	for _, row := range rows {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}
	for r := 0; r < m; r++ {
		for i := 0; i < n; i++ {
			atb[i] += rows[r][i] * rhs[r]
		}
	}
	return solveLinearSystem(ata, atb)
}
