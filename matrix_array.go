package symcalc

import (
	"math"
	"math/cmplx"
)

// Numeric counterparts of the symbolic matrix algorithms, working on
// row-major complex arrays. They back the approximation engine and serve as
// the fallback when the arena cannot hold a symbolic computation.

const (
	doubleEpsilon = 1e-15
	floatEpsilon  = 1e-7

	// epsilonLax bounds the distance to 1 of the diagonal of an inverted
	// matrix.
	epsilonLax = 1e-6

	// dblMin is the smallest normal float64; columns whose best pivot is
	// below it are treated as null.
	dblMin = 0x1p-1022
)

func epsilonFor(p Precision) float64 {
	if p == SinglePrecision {
		return floatEpsilon
	}
	return doubleEpsilon
}

// ArrayRowCanonize runs Gauss-Jordan elimination on the rows×cols array in
// place and returns the determinant factor accumulated along the way (the
// determinant when the array is square). Rows above the pivot are only
// cleared when reduced is set, in which case the first non-null pivot is
// taken instead of the largest.
func ArrayRowCanonize(array []complex128, rows, cols int, reduced bool) complex128 {
	det, _ := rowCanonize(array, rows, cols, reduced, dblMin)
	return det
}

// rowCanonize is ArrayRowCanonize with columns whose best pivot is below
// minPivot treated as null. It also returns the number of pivots found.
func rowCanonize(array []complex128, rows, cols int, reduced bool, minPivot float64) (complex128, int) {
	det := complex(1, 0)
	h, k := 0, 0
	for h < rows && k < cols {
		iPivot := h
		best := 0.0
		for r := h; r < rows; r++ {
			if v := cmplx.Abs(array[r*cols+k]); v > best {
				best = v
				iPivot = r
				if reduced {
					break
				}
			}
		}
		if best < minPivot {
			for r := h; r < rows; r++ {
				array[r*cols+k] = 0
			}
			k++
			det = 0
			continue
		}
		if iPivot != h {
			for c := h; c < cols; c++ {
				array[iPivot*cols+c], array[h*cols+c] = array[h*cols+c], array[iPivot*cols+c]
			}
			det = -det
		}
		divisor := array[h*cols+k]
		det *= divisor
		for c := k + 1; c < cols; c++ {
			array[h*cols+c] /= divisor
		}
		array[h*cols+k] = 1

		l := h + 1
		if reduced {
			l = 0
		}
		for i := l; i < rows; i++ {
			if i == h {
				continue
			}
			factor := array[i*cols+k]
			for c := k + 1; c < cols; c++ {
				array[i*cols+c] -= array[h*cols+c] * factor
			}
			array[i*cols+k] = 0
		}
		h++
		k++
	}
	return det, h
}

// ArrayInverse inverts the dim×dim array in place and reports false when it
// is singular or holds a non-finite entry.
func ArrayInverse(array []complex128, dim int) bool {
	cols := 2 * dim
	work := make([]complex128, dim*cols)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			c := array[i*dim+j]
			if !finite(c) {
				return false
			}
			work[i*cols+j] = c
		}
		work[i*cols+dim+i] = 1
	}
	ArrayRowCanonize(work, dim, cols, true)
	for i := 0; i < dim; i++ {
		c := work[i*cols+i]
		if !finite(c) || cmplx.Abs(c-1) > epsilonLax {
			return false
		}
	}
	for i := 0; i < dim; i++ {
		copy(array[i*dim:(i+1)*dim], work[i*cols+dim:(i+1)*cols])
	}
	return true
}

func finite(c complex128) bool {
	return !cmplx.IsNaN(c) && !cmplx.IsInf(c)
}

func arrayMultiply(x, y []complex128, rows, inner, cols int) []complex128 {
	out := make([]complex128, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var s complex128
			for k := 0; k < inner; k++ {
				s += x[i*inner+k] * y[k*cols+j]
			}
			out[i*cols+j] = s
		}
	}
	return out
}

func arrayTranspose(x []complex128, rows, cols int) []complex128 {
	out := make([]complex128, len(x))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = x[i*cols+j]
		}
	}
	return out
}

// arrayRank counts the pivots of a canonized copy of x. A pivot smaller
// than epsilon relative to the largest entry is round-off and the column is
// skipped.
func arrayRank(x []complex128, rows, cols int, epsilon float64) int {
	scale := 0.0
	for _, c := range x {
		scale = math.Max(scale, cmplx.Abs(c))
	}
	if scale == 0 {
		return 0
	}
	work := append([]complex128(nil), x...)
	minPivot := math.Max(epsilon*scale*float64(max(rows, cols)), dblMin)
	_, rank := rowCanonize(work, rows, cols, false, minPivot)
	return rank
}

// checkedRank computes the rank of x twice: on the double values and on the
// values rounded to single precision, each with its own tolerance. It
// returns -1 when the two disagree, as the answer then depends on round-off.
func checkedRank(x []complex128, rows, cols int) int {
	single := make([]complex128, len(x))
	for i, c := range x {
		single[i] = complex(float64(float32(real(c))), float64(float32(imag(c))))
	}
	r := arrayRank(x, rows, cols, doubleEpsilon)
	if arrayRank(single, rows, cols, floatEpsilon) != r {
		return -1
	}
	return r
}

func arrayIdentity(n int) []complex128 {
	out := make([]complex128, n*n)
	for i := 0; i < n; i++ {
		out[i*n+i] = 1
	}
	return out
}
