package veclust_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/veclust"
	"github.com/hupe1980/veclust/feature"
	"github.com/hupe1980/veclust/testutil"
)

var bow = feature.BagOfWords{}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// sortedUnion flattens a partition into a sorted slice.
func sortedUnion[E any](sets [][]E, cmp func(a, b E) int) []E {
	var all []E
	for _, s := range sets {
		all = append(all, s...)
	}
	slices.SortFunc(all, cmp)
	return all
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int { return a - b }

func TestNew_InvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		ex    feature.Extractor[string]
		k     int
		opts  []veclust.Option
		param string
	}{
		{"nil extractor", nil, 2, nil, "extractor"},
		{"zero clusters", bow, 0, nil, "numClusters"},
		{"negative clusters", bow, -3, nil, "numClusters"},
		{"negative epochs", bow, 2, []veclust.Option{veclust.WithMaxEpochs(-1)}, "maxEpochs"},
		{"NaN threshold", bow, 2, []veclust.Option{veclust.WithMinRelativeImprovement(math.NaN())}, "minRelativeImprovement"},
		{"infinite threshold", bow, 2, []veclust.Option{veclust.WithMinRelativeImprovement(math.Inf(1))}, "minRelativeImprovement"},
		{"negative threshold", bow, 2, []veclust.Option{veclust.WithMinRelativeImprovement(-0.5)}, "minRelativeImprovement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, err := veclust.New[string](tt.ex, tt.k, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, km)
			assert.ErrorIs(t, err, veclust.ErrInvalidArgument)

			var pe *veclust.ErrInvalidParameter
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.param, pe.Name)
		})
	}
}

func TestNew_ValidEdgeValues(t *testing.T) {
	km, err := veclust.New[string](bow, 1,
		veclust.WithMaxEpochs(0),
		veclust.WithMinRelativeImprovement(0),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, km.NumClusters())
}

func TestCluster_SingleCluster(t *testing.T) {
	elements := []string{"A A A", "B B B", "C C C"}

	for _, plusPlus := range []bool{true, false} {
		for _, epochs := range []int{0, 1, 5, 100} {
			km, err := veclust.New[string](bow, 1,
				veclust.WithKMeansPlusPlus(plusPlus),
				veclust.WithMaxEpochs(epochs),
			)
			require.NoError(t, err)

			res, err := km.Cluster(context.Background(), elements, newRand(uint64(epochs)))
			require.NoError(t, err)
			require.Equal(t, 1, res.Len())
			assert.ElementsMatch(t, elements, res.Clusters[0].Elements())
		}
	}
}

func TestCluster_TwoSingletons(t *testing.T) {
	elements := []string{"A A A", "B B B"}

	for _, plusPlus := range []bool{true, false} {
		km, err := veclust.New[string](bow, 2, veclust.WithKMeansPlusPlus(plusPlus))
		require.NoError(t, err)

		for seed := range uint64(1000) {
			res, err := km.Cluster(context.Background(), elements, newRand(seed))
			require.NoError(t, err)
			require.Equal(t, 2, res.Len())

			sets := res.Sets()
			assert.ElementsMatch(t, [][]string{{"A A A"}, {"B B B"}}, sets)
		}
	}
}

func TestCluster_SeparatesGroups(t *testing.T) {
	elements := []string{"A A A", "B B B B", "A A", "B B"}

	km, err := veclust.New[string](bow, 2)
	require.NoError(t, err)

	for seed := range uint64(1000) {
		res, err := km.Cluster(context.Background(), elements, newRand(seed))
		require.NoError(t, err)
		require.Equal(t, 2, res.Len(), "seed %d", seed)
		assert.True(t, res.Reason.Converged())

		// The A cluster fits tighter and ranks first.
		assert.Equal(t, []string{"A A A", "A A"}, res.Clusters[0].Elements(), "seed %d", seed)
		assert.Equal(t, []string{"B B B B", "B B"}, res.Clusters[1].Elements(), "seed %d", seed)
		assert.InDelta(t, -0.25, res.Clusters[0].Score, 1e-12)
		assert.InDelta(t, -1.0, res.Clusters[1].Score, 1e-12)
	}
}

func TestCluster_Trivial(t *testing.T) {
	km, err := veclust.New[string](bow, 5)
	require.NoError(t, err)

	elements := []string{"x", "y y", "z"}

	// The random source is irrelevant on the trivial path.
	for _, rng := range []veclust.Rand{nil, newRand(1), testutil.NewRNG(7)} {
		res, err := km.Cluster(context.Background(), elements, rng)
		require.NoError(t, err)

		assert.Equal(t, veclust.StopTrivial, res.Reason)
		assert.Equal(t, 0, res.Epochs)
		require.Equal(t, 3, res.Len())
		for _, c := range res.Clusters {
			require.Equal(t, 1, c.Len())
			assert.Equal(t, veclust.ExactMatchScore, c.Members[0].Score)
			assert.Equal(t, veclust.ExactMatchScore, c.Score)
		}
		assert.Equal(t, elements, sortedUnion(res.Sets(), compareStrings))
	}

	res, err := km.Cluster(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestCluster_SingleElement(t *testing.T) {
	for _, k := range []int{1, 2, 10} {
		km, err := veclust.New[string](bow, k)
		require.NoError(t, err)

		res, err := km.Cluster(context.Background(), []string{"only"}, newRand(3))
		require.NoError(t, err)
		assert.Equal(t, veclust.StopTrivial, res.Reason)
		assert.Equal(t, [][]string{{"only"}}, res.Sets())
	}
}

func TestCluster_Partition(t *testing.T) {
	rng := testutil.NewRNG(42)
	docs, _ := rng.Documents(60, 3, 8)
	want := slices.Clone(docs)
	slices.Sort(want)

	for _, plusPlus := range []bool{true, false} {
		for _, epochs := range []int{0, 1, 2, 10, 100} {
			for _, workers := range []int{1, 4} {
				km, err := veclust.New[string](bow, 4,
					veclust.WithKMeansPlusPlus(plusPlus),
					veclust.WithMaxEpochs(epochs),
					veclust.WithWorkers(workers),
				)
				require.NoError(t, err)

				res, err := km.Cluster(context.Background(), docs, newRand(9))
				require.NoError(t, err)

				assert.LessOrEqual(t, res.Len(), 4)
				assert.Equal(t, want, sortedUnion(res.Sets(), compareStrings))
				if epochs == 0 {
					assert.Equal(t, veclust.StopZeroEpochs, res.Reason)
					assert.Equal(t, 0, res.Epochs)
				} else {
					assert.LessOrEqual(t, res.Epochs, epochs)
				}

				for _, c := range res.Clusters {
					assert.NotZero(t, c.Len())
					for j := 1; j < c.Len(); j++ {
						assert.GreaterOrEqual(t, c.Members[j-1].Score, c.Members[j].Score)
					}
				}
				for j := 1; j < res.Len(); j++ {
					assert.GreaterOrEqual(t, res.Clusters[j-1].Score, res.Clusters[j].Score)
				}
			}
		}
	}
}

func TestCluster_Deterministic(t *testing.T) {
	vectors, _ := testutil.NewRNG(5).ClusteredVectors(300, 8, 5, 2.0)
	elements := testutil.Indices(len(vectors))

	run := func(workers int) [][]int {
		km, err := veclust.New(testutil.VectorExtractor(vectors), 5, veclust.WithWorkers(workers))
		require.NoError(t, err)

		res, err := km.Cluster(context.Background(), elements, newRand(11))
		require.NoError(t, err)
		return res.Sets()
	}

	first := run(1)
	assert.Equal(t, first, run(1))
	assert.Equal(t, first, run(3))
	assert.Equal(t, first, run(8))
}

func TestCluster_Quality(t *testing.T) {
	rng := testutil.NewRNG(8)
	vectors, labels := rng.ClusteredVectors(400, 6, 4, 0.5)

	km, err := veclust.New(testutil.VectorExtractor(vectors), 4)
	require.NoError(t, err)

	res, err := km.Cluster(context.Background(), testutil.Indices(len(vectors)), rng)
	require.NoError(t, err)

	assert.Greater(t, testutil.Purity(labels, res.Sets()), 0.5)
	assert.Equal(t, testutil.Indices(len(vectors)), sortedUnion(res.Sets(), compareInts))
}

func TestCluster_MonotoneError(t *testing.T) {
	vectors, _ := testutil.NewRNG(21).ClusteredVectors(500, 10, 8, 3.0)

	for _, plusPlus := range []bool{true, false} {
		mc := &veclust.BasicMetricsCollector{}
		km, err := veclust.New(testutil.VectorExtractor(vectors), 8,
			veclust.WithKMeansPlusPlus(plusPlus),
			veclust.WithMinRelativeImprovement(0),
			veclust.WithMetricsCollector(mc),
		)
		require.NoError(t, err)

		res, err := km.Cluster(context.Background(), testutil.Indices(len(vectors)), newRand(2))
		require.NoError(t, err)

		history := mc.ErrorHistory()
		require.Len(t, history, res.Epochs)
		for i := 1; i < len(history); i++ {
			assert.LessOrEqual(t, history[i], history[i-1]+1e-9, "epoch %d", i)
		}
		assert.InDelta(t, history[len(history)-1], res.AvgSqDist, 1e-12)
	}
}

func TestCluster_TerminatesWithoutChange(t *testing.T) {
	rng := testutil.NewRNG(33)
	docs, _ := rng.Documents(120, 4, 10)

	for _, plusPlus := range []bool{true, false} {
		km, err := veclust.New[string](bow, 6,
			veclust.WithKMeansPlusPlus(plusPlus),
			veclust.WithMinRelativeImprovement(0),
			veclust.WithMaxEpochs(10000),
		)
		require.NoError(t, err)

		res, err := km.Cluster(context.Background(), docs, rng)
		require.NoError(t, err)
		assert.Equal(t, veclust.StopNoChange, res.Reason)
		assert.Less(t, res.Epochs, 10000)
	}
}

func TestCluster_PerCallOptions(t *testing.T) {
	docs, _ := testutil.NewRNG(4).Documents(30, 3, 6)

	km, err := veclust.New[string](bow, 3)
	require.NoError(t, err)

	res, err := km.Cluster(context.Background(), docs, newRand(1), veclust.WithMaxEpochs(0))
	require.NoError(t, err)
	assert.Equal(t, veclust.StopZeroEpochs, res.Reason)

	// The clusterer keeps its own options.
	res, err = km.Cluster(context.Background(), docs, newRand(1))
	require.NoError(t, err)
	assert.NotEqual(t, veclust.StopZeroEpochs, res.Reason)

	_, err = km.Cluster(context.Background(), docs, newRand(1), veclust.WithMaxEpochs(-2))
	assert.ErrorIs(t, err, veclust.ErrInvalidArgument)
}

func TestCluster_InvalidFeature(t *testing.T) {
	ex := feature.ExtractorFunc[string](func(s string) (map[string]float64, error) {
		if s == "bad" {
			return map[string]float64{"w": math.NaN()}, nil
		}
		return map[string]float64{"w": 1}, nil
	})

	km, err := veclust.New[string](ex, 1)
	require.NoError(t, err)

	_, err = km.Cluster(context.Background(), []string{"good", "bad", "fine"}, newRand(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, veclust.ErrInvalidArgument)

	var fe *veclust.ErrInvalidFeature
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Element)
	assert.Equal(t, "w", fe.Feature)
	assert.True(t, math.IsNaN(fe.Value))
}

func TestCluster_ExtractorError(t *testing.T) {
	errBoom := errors.New("boom")
	ex := feature.ExtractorFunc[int](func(i int) (map[string]float64, error) {
		if i == 2 {
			return nil, errBoom
		}
		return map[string]float64{"x": float64(i)}, nil
	})

	mc := &veclust.BasicMetricsCollector{}
	km, err := veclust.New[int](ex, 1, veclust.WithMetricsCollector(mc))
	require.NoError(t, err)

	_, err = km.Cluster(context.Background(), []int{0, 1, 2, 3}, newRand(1))
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, veclust.ErrInvalidArgument)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.RunCount)
	assert.Equal(t, int64(1), stats.RunErrors)
}

func TestCluster_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	km, err := veclust.New[string](bow, 2)
	require.NoError(t, err)

	_, err = km.Cluster(ctx, []string{"a", "b", "c"}, newRand(1))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = km.Recluster(ctx, [][]string{{"a"}}, []string{"b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCluster_NoGoroutineLeaks(t *testing.T) {
	vectors, _ := testutil.NewRNG(1).ClusteredVectors(2000, 4, 4, 1.0)

	km, err := veclust.New(testutil.VectorExtractor(vectors), 4, veclust.WithWorkers(8))
	require.NoError(t, err)

	runtime.GC()
	before := runtime.NumGoroutine()

	for seed := range uint64(5) {
		_, err := km.Cluster(context.Background(), testutil.Indices(len(vectors)), newRand(seed))
		require.NoError(t, err)
	}

	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before+2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)
}

func TestRecluster(t *testing.T) {
	partition := [][]string{{"A A A", "A A"}, {"B B B"}}
	unclustered := []string{"B B", "A"}

	km, err := veclust.New[string](bow, 7)
	require.NoError(t, err)

	res, err := km.Recluster(context.Background(), partition, unclustered)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.Len(), len(partition))
	assert.Equal(t,
		[]string{"A", "A A", "A A A", "B B", "B B B"},
		sortedUnion(res.Sets(), compareStrings),
	)
	assert.ElementsMatch(t, [][]string{{"A A A", "A A", "A"}, {"B B B", "B B"}}, normalize(res.Sets()))
}

func normalize(sets [][]string) [][]string {
	out := make([][]string, len(sets))
	for i, s := range sets {
		out[i] = slices.Clone(s)
		slices.SortFunc(out[i], func(a, b string) int { return compareStrings(b, a) })
	}
	return out
}

func TestRecluster_CellLosesAllMembers(t *testing.T) {
	partition := [][]string{{"A A A"}, {"B B B"}, {"A A A A", "B B B B"}}

	km, err := veclust.New[string](bow, 3)
	require.NoError(t, err)

	res, err := km.Recluster(context.Background(), partition, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[][]string{{"A A A A", "A A A"}, {"B B B B", "B B B"}},
		normalize(res.Sets()),
	)
}

func TestRecluster_ZeroEpochs(t *testing.T) {
	partition := [][]string{{"A A A"}, {"B B B"}}

	mc := &veclust.BasicMetricsCollector{}
	km, err := veclust.New[string](bow, 2, veclust.WithMetricsCollector(mc))
	require.NoError(t, err)

	res, err := km.Recluster(context.Background(), partition, []string{"A"}, veclust.WithMaxEpochs(0))
	require.NoError(t, err)

	assert.Equal(t, veclust.StopZeroEpochs, res.Reason)
	assert.ElementsMatch(t, [][]string{{"A A A", "A"}, {"B B B"}}, normalize(res.Sets()))

	// The initial reassignment pass is still reported.
	assert.Len(t, mc.ErrorHistory(), 1)
	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.ReclusterCount)
}

func TestRecluster_InvalidInput(t *testing.T) {
	var calls atomic.Int64
	ex := feature.ExtractorFunc[string](func(s string) (map[string]float64, error) {
		calls.Add(1)
		return bow.Features(s)
	})

	km, err := veclust.New[string](ex, 2)
	require.NoError(t, err)

	tests := []struct {
		name        string
		partition   [][]string
		unclustered []string
		duplicate   bool
		first       int
		second      int
	}{
		{"two cells", [][]string{{"a", "b"}, {"c", "a"}}, nil, true, 0, 1},
		{"cell and unclustered", [][]string{{"a"}, {"b"}}, []string{"c", "b"}, true, 1, -1},
		{"twice unclustered", [][]string{{"a"}}, []string{"c", "c"}, true, -1, -1},
		{"twice in one cell", [][]string{{"a", "a"}}, nil, true, 0, 0},
		{"empty cell", [][]string{{"a"}, {}}, nil, false, 0, 0},
		{"no cells", nil, []string{"a"}, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)

			res, err := km.Recluster(context.Background(), tt.partition, tt.unclustered)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, veclust.ErrInvalidArgument)
			assert.Zero(t, calls.Load(), "no work before validation")

			if !tt.duplicate {
				assert.NotErrorIs(t, err, veclust.ErrDuplicateAssignment)
				return
			}

			assert.ErrorIs(t, err, veclust.ErrDuplicateAssignment)
			var de *veclust.ErrDuplicateElement
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.first, de.First)
			assert.Equal(t, tt.second, de.Second)
		})
	}
}

func TestResult_Model(t *testing.T) {
	elements := []string{"A A A", "B B B B", "A A", "B B"}

	km, err := veclust.New[string](bow, 2)
	require.NoError(t, err)

	res, err := km.Cluster(context.Background(), elements, newRand(4))
	require.NoError(t, err)

	m := res.Model()
	require.Same(t, m, res.Model())
	assert.Equal(t, res.RunID, m.ID)
	assert.Equal(t, res.Len(), m.NumClusters())
	assert.Equal(t, []int{2, 2}, m.Sizes)
	require.NoError(t, m.Validate())

	for i, c := range res.Clusters {
		for _, e := range c.Elements() {
			f, err := bow.Features(e)
			require.NoError(t, err)

			got, _, err := m.Assign(f)
			require.NoError(t, err)
			assert.Equal(t, i, got, e)
		}
	}

	f, err := bow.Features("A")
	require.NoError(t, err)
	got, dist, err := m.Assign(f)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.InDelta(t, 2.25, dist, 1e-12)
}
