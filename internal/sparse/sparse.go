package sparse

// Vector holds the non-zero coordinates of a feature vector as parallel
// index/value slices. Indices are unique but not necessarily sorted.
type Vector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero coordinates.
func (v Vector) Len() int {
	return len(v.Indices)
}

// Dot returns the dot product of v with a dense vector.
func (v Vector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		sum += v.Values[i] * dense[idx]
	}
	return sum
}

// AddTo adds v into dense in place.
func (v Vector) AddTo(dense []float64) {
	for i, idx := range v.Indices {
		dense[idx] += v.Values[i]
	}
}

// CopyTo overwrites dense with v.
func (v Vector) CopyTo(dense []float64) {
	clear(dense)
	v.AddTo(dense)
}

// SquaredNorm returns the squared L2 norm of v.
func (v Vector) SquaredNorm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// SquaredDistance returns the squared Euclidean distance between a sparse
// vector and a dense one, given both squared norms.
//
// It uses ‖c‖² + ‖v‖² − 2·(c·v) so only the non-zero coordinates of v are
// visited. Rounding can push the expansion slightly below zero; the result is
// clamped at zero.
func SquaredDistance(v Vector, vSqNorm float64, dense []float64, denseSqNorm float64) float64 {
	d := denseSqNorm + vSqNorm - 2*v.Dot(dense)
	if d < 0 {
		return 0
	}
	return d
}
