package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/hupe1980/veclust/feature"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe and satisfies veclust.Rand.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dimensions)
	vectors := make([][]float64, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		vectors[i] = vec
	}

	return vectors
}

// ClusteredVectors generates vectors around well separated centroids.
// Vector i belongs to cluster i mod clusters; the returned labels say which.
// Centroids sit on the axes at distance 10, noise is Gaussian with the given
// spread.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float64) ([][]float64, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	vectors := make([][]float64, num)
	labels := make([]int, num)

	for i := range num {
		c := i % clusters
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = r.rand.NormFloat64() * spread
		}
		vec[c%dim] += 10 * float64(1+c/dim)
		vectors[i] = vec
		labels[i] = c
	}

	return vectors, labels
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// Documents generates num short texts drawn from topics disjoint
// vocabularies. Word frequencies within a topic follow a Zipf law. Every
// document starts with a unique "docN" token, so documents are distinct.
func (r *RNG) Documents(num, topics, wordsPerDoc int) ([]string, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const vocabPerTopic = 20

	docs := make([]string, num)
	labels := make([]int, num)

	var sb strings.Builder
	for i := range num {
		topic := i % topics
		sb.Reset()
		fmt.Fprintf(&sb, "doc%d", i)
		for range wordsPerDoc {
			fmt.Fprintf(&sb, " t%dw%d", topic, r.zipfLocked(vocabPerTopic, 1.2))
		}
		docs[i] = sb.String()
		labels[i] = topic
	}

	return docs, labels
}

// VectorExtractor returns an extractor for element indices into vectors.
// Dimension j is named "dJ"; zero coordinates are omitted.
func VectorExtractor(vectors [][]float64) feature.Extractor[int] {
	return feature.ExtractorFunc[int](func(i int) (map[string]float64, error) {
		if i < 0 || i >= len(vectors) {
			return nil, fmt.Errorf("element %d out of range", i)
		}
		features := make(map[string]float64, len(vectors[i]))
		for j, v := range vectors[i] {
			if v != 0 {
				features[fmt.Sprintf("d%d", j)] = v
			}
		}
		return features, nil
	})
}

// Indices returns 0..n-1.
func Indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Purity measures how well clusters of element indices match labels: the
// fraction of elements that carry the majority label of their cluster.
func Purity(labels []int, clusters [][]int) float64 {
	var total, hits int
	for _, cluster := range clusters {
		counts := make(map[int]int)
		best := 0
		for _, i := range cluster {
			counts[labels[i]]++
			best = max(best, counts[labels[i]])
		}
		hits += best
		total += len(cluster)
	}
	if total == 0 {
		return 1.0
	}
	return float64(hits) / float64(total)
}
