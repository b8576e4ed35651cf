package sparse

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/veclust/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_Ops(t *testing.T) {
	v := Vector{Indices: []int{2, 0}, Values: []float64{3, 4}}
	dense := []float64{1, 10, 2}

	assert.Equal(t, 2, v.Len())
	assert.InDelta(t, 3*2+4*1, v.Dot(dense), 1e-12)
	assert.InDelta(t, 25, v.SquaredNorm(), 1e-12)

	v.AddTo(dense)
	assert.Equal(t, []float64{5, 10, 5}, dense)

	v.CopyTo(dense)
	assert.Equal(t, []float64{4, 0, 3}, dense)
}

func TestSquaredDistance(t *testing.T) {
	v := Vector{Indices: []int{0, 1}, Values: []float64{1, 2}}
	c := []float64{4, 6, 0}
	// (1-4)^2 + (2-6)^2 = 25
	d := SquaredDistance(v, v.SquaredNorm(), c, 16+36)
	assert.InDelta(t, 25, d, 1e-12)

	// Identical vectors never yield a negative distance.
	dense := []float64{0.1, 0.2, 0}
	w := Vector{Indices: []int{0, 1}, Values: []float64{0.1, 0.2}}
	assert.GreaterOrEqual(t, SquaredDistance(w, w.SquaredNorm(), dense, 0.1*0.1+0.2*0.2), 0.0)
}

func TestVectorize(t *testing.T) {
	docs := []string{"A A A", "B B B", "A B"}
	symbols := feature.NewMapSymbolTable()

	set, err := Vectorize(context.Background(), docs, feature.Extractor[string](feature.BagOfWords{}), symbols)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 2, set.Dim())
	assert.Equal(t, []string{"A", "B"}, set.Vocabulary)

	assert.Equal(t, []int{0}, set.Vectors[0].Indices)
	assert.Equal(t, []float64{3}, set.Vectors[0].Values)
	assert.Equal(t, []int{1}, set.Vectors[1].Indices)
	assert.Equal(t, []int{0, 1}, set.Vectors[2].Indices)

	assert.Equal(t, []float64{9, 9, 2}, set.SqNorms)
}

func TestVectorize_Deterministic(t *testing.T) {
	ex := feature.ExtractorFunc[int](func(i int) (map[string]float64, error) {
		return map[string]float64{"z": 1, "m": 2, "a": float64(i)}, nil
	})

	for run := 0; run < 20; run++ {
		symbols := feature.NewMapSymbolTable()
		set, err := Vectorize(context.Background(), []int{1, 2}, ex, symbols)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "m", "z"}, set.Vocabulary)
	}
}

func TestVectorize_ZeroValuesRegisteredNotStored(t *testing.T) {
	ex := feature.ExtractorFunc[int](func(int) (map[string]float64, error) {
		return map[string]float64{"nil": 0, "one": 1}, nil
	})

	set, err := Vectorize(context.Background(), []int{0}, ex, feature.NewMapSymbolTable())
	require.NoError(t, err)
	assert.Equal(t, 2, set.Dim())
	assert.Equal(t, []int{1}, set.Vectors[0].Indices)
}

func TestVectorize_PrepopulatedSymbols(t *testing.T) {
	symbols := feature.NewMapSymbolTable()
	symbols.GetOrAddSymbol("unused")

	set, err := Vectorize(context.Background(), []string{"x"}, feature.Extractor[string](feature.BagOfWords{}), symbols)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "x"}, set.Vocabulary)
}

func TestVectorize_Errors(t *testing.T) {
	t.Run("non-finite", func(t *testing.T) {
		ex := feature.ExtractorFunc[int](func(int) (map[string]float64, error) {
			return map[string]float64{"bad": math.NaN()}, nil
		})
		_, err := Vectorize(context.Background(), []int{0}, ex, feature.NewMapSymbolTable())

		var nf *ErrNonFiniteFeature
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "bad", nf.Feature)
	})

	t.Run("extractor", func(t *testing.T) {
		boom := errors.New("boom")
		ex := feature.ExtractorFunc[int](func(int) (map[string]float64, error) {
			return nil, boom
		})
		_, err := Vectorize(context.Background(), []int{0, 1}, ex, feature.NewMapSymbolTable())

		var ee *ErrExtract
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, 0, ee.Element)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Vectorize(ctx, []string{"a"}, feature.Extractor[string](feature.BagOfWords{}), feature.NewMapSymbolTable())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
