package kmeans

import (
	"math"

	"github.com/hupe1980/veclust/internal/sparse"
)

// SeedPlusPlus picks k seed elements with k-means++ and returns the state with
// every element assigned to its nearest seed and each centroid set to the
// mean of its assigned elements.
//
// The first seed is uniform; every further seed is drawn with probability
// proportional to the squared distance to the nearest seed picked so far.
// Requires set.Len() > 0.
func SeedPlusPlus(set *sparse.Set, k int, rng Rand) *State {
	s := newState(set, k)
	n := set.Len()

	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	seed := make([]float64, set.Dim())

	idx := rng.IntN(n)
	for m := 0; m < k; m++ {
		if m > 0 {
			idx = sampleProportional(minDist, rng)
		}

		set.Vectors[idx].CopyTo(seed)
		seedNorm := set.SqNorms[idx]
		for i := 0; i < n; i++ {
			d := sparse.SquaredDistance(set.Vectors[i], set.SqNorms[i], seed, seedNorm)
			if d < minDist[i] {
				minDist[i] = d
				s.closest[i] = m
			}
		}
	}

	s.recomputeAll()
	return s
}

// sampleProportional draws an index with probability proportional to its
// weight. It draws u in [0, sum) and returns the first positive-weight index
// whose cumulative weight reaches u. When rounding lets u overrun the
// cumulative total, or every weight is zero, the last index is returned.
func sampleProportional(weights []float64, rng Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}

	u := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if w > 0 && cum >= u {
			return i
		}
	}
	return len(weights) - 1
}

// SeedRoundRobin assigns element i to cluster i mod k and sets each centroid
// to the mean of its elements.
func SeedRoundRobin(set *sparse.Set, k int) *State {
	s := newState(set, k)
	for i := range s.closest {
		s.closest[i] = i % k
	}
	s.recomputeAll()
	return s
}

// SeedPartition builds centroids from a given assignment. Elements assigned
// -1 contribute to no centroid and keep the owner -1 until reassigned.
func SeedPartition(set *sparse.Set, assignment []int, k int) *State {
	s := newState(set, k)
	copy(s.closest, assignment)
	s.recomputeAll()
	return s
}
