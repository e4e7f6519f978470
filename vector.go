package img2aa

import (
	"gonum.org/v1/gonum/blas/blas32"
)

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged (as a copy).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	if len(out) == 0 {
		return out
	}
	vec := blas32.Vector{N: len(out), Inc: 1, Data: out}
	norm := blas32.Nrm2(vec)
	if norm == 0 {
		return out
	}
	blas32.Scal(1/norm, vec)
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// empty, zero, or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	va := blas32.Vector{N: len(a), Inc: 1, Data: a}
	vb := blas32.Vector{N: len(b), Inc: 1, Data: b}
	na, nb := blas32.Nrm2(va), blas32.Nrm2(vb)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(blas32.Dot(va, vb)) / (float64(na) * float64(nb))
}

// dot assumes both vectors are unit length and of equal size.
func dot(a, b []float32) float64 {
	return float64(blas32.Dot(
		blas32.Vector{N: len(a), Inc: 1, Data: a},
		blas32.Vector{N: len(b), Inc: 1, Data: b},
	))
}
