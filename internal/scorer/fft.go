package scorer

import (
	"math"
	"math/cmplx"
)

// fft1D computes the discrete Fourier transform of a, whose length
// must be a power of two, using textbook recursive radix-2
// decimation-in-time. It intentionally favors a simple, literal
// translation of the Cooley-Tukey recursion over an in-place iterative
// variant: the evaluation order is part of the scorer's determinism
// contract and is easier to reason about recursively.
func fft1D(a []complex128) []complex128 {
	n := len(a)
	if n == 1 {
		return []complex128{a[0]}
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = a[2*i]
		odd[i] = a[2*i+1]
	}

	evenT := fft1D(even)
	oddT := fft1D(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		twiddle := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n))) * oddT[k]
		out[k] = evenT[k] + twiddle
		out[k+n/2] = evenT[k] - twiddle
	}
	return out
}

// fft2D applies fft1D to every row and then to every column of a
// square N×N complex matrix, returning a new matrix in the same
// [row][col] layout.
func fft2D(mat [][]complex128) [][]complex128 {
	n := len(mat)
	rowT := make([][]complex128, n)
	for r := 0; r < n; r++ {
		rowT[r] = fft1D(mat[r])
	}

	cols := make([][]complex128, n)
	for c := 0; c < n; c++ {
		col := make([]complex128, n)
		for r := 0; r < n; r++ {
			col[r] = rowT[r][c]
		}
		cols[c] = fft1D(col)
	}

	out := make([][]complex128, n)
	for r := 0; r < n; r++ {
		out[r] = make([]complex128, n)
	}
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			out[r][c] = cols[c][r]
		}
	}
	return out
}
