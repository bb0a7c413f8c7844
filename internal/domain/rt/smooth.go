package rt

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FiltFilt applies the FIR filter b forward and then backward, so the
// output has no phase shift. The input is extended at both ends by an odd
// reflection of 3*len(b) points, and each pass starts from the steady state
// of its first sample. Inputs no longer than the padding are returned as a
// copy.
func FiltFilt(b, x []float64) []float64 {
	n := len(x)
	padlen := 3 * len(b)
	out := make([]float64, n)
	if n <= padlen || len(b) == 0 {
		copy(out, x)
		return out
	}

	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
		ext[padlen+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padlen:], x)

	y := firSteady(b, ext)
	floats.Reverse(y)
	y = firSteady(b, y)
	floats.Reverse(y)

	copy(out, y[padlen:padlen+n])
	return out
}

// firSteady computes y[i] = sum_k b[k]*x[i-k], treating samples before
// the start as equal to x[0].
func firSteady(b, x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		var acc float64
		for k, bk := range b {
			j := i - k
			if j < 0 {
				j = 0
			}
			acc += bk * x[j]
		}
		y[i] = acc
	}
	return y
}

// smooth returns the zero-phase filtered series when it is longer than
// minLen. NaN points stay NaN; each maximal run of defined points is
// filtered on its own, and runs too short for the padding are kept raw.
func smooth(b, x []float64, minLen int) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if len(x) <= minLen {
		return out
	}
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		copy(out[start:end], FiltFilt(b, x[start:end]))
		start = -1
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(x))
	return out
}
