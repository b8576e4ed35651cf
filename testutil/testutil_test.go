package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	a := []float64{rng.Float64(), rng.Float64(), float64(rng.IntN(100))}

	rng.Reset()
	b := []float64{rng.Float64(), rng.Float64(), float64(rng.IntN(100))}

	assert.Equal(t, a, b)
	assert.Equal(t, uint64(4711), rng.Seed())
}

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	for _, vec := range v {
		for _, x := range vec {
			assert.GreaterOrEqual(t, x, 0.0)
			assert.Less(t, x, 1.0)
		}
	}
}

func TestClusteredVectors(t *testing.T) {
	rng := NewRNG(4711)

	v, labels := rng.ClusteredVectors(12, 4, 3, 0.1)

	require.Len(t, v, 12)
	require.Len(t, labels, 12)
	for i, vec := range v {
		assert.Equal(t, i%3, labels[i])
		assert.Greater(t, vec[labels[i]], 5.0)
	}
}

func TestDocuments(t *testing.T) {
	rng := NewRNG(4711)

	docs, labels := rng.Documents(6, 2, 5)

	require.Len(t, docs, 6)
	seen := make(map[string]bool)
	for i, d := range docs {
		assert.False(t, seen[d])
		seen[d] = true

		words := strings.Fields(d)
		assert.Len(t, words, 6)
		for _, w := range words[1:] {
			if labels[i] == 0 {
				assert.True(t, strings.HasPrefix(w, "t0w"), w)
			} else {
				assert.True(t, strings.HasPrefix(w, "t1w"), w)
			}
		}
	}
}

func TestZipf(t *testing.T) {
	rng := NewRNG(4711)

	counts := make([]int, 10)
	for range 2000 {
		counts[rng.Zipf(10, 1.5)]++
	}
	assert.Greater(t, counts[0], counts[9])
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
}

func TestVectorExtractor(t *testing.T) {
	ex := VectorExtractor([][]float64{{1, 0, 2}})

	f, err := ex.Features(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"d0": 1, "d2": 2}, f)

	_, err = ex.Features(1)
	assert.Error(t, err)
}

func TestPurity(t *testing.T) {
	labels := []int{0, 0, 1, 1}

	assert.Equal(t, 1.0, Purity(labels, [][]int{{0, 1}, {2, 3}}))
	assert.Equal(t, 0.5, Purity(labels, [][]int{{0, 2}, {1, 3}}))
	assert.Equal(t, 1.0, Purity(labels, nil))
	assert.Equal(t, []int{0, 1, 2}, Indices(3))
}
