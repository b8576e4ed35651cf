package kmeans

import (
	"context"
	"fmt"

	"github.com/hupe1980/veclust/internal/sparse"
)

// Rand is the random source used for seeding.
// *math/rand/v2.Rand satisfies it. A Rand must not be shared by concurrent runs.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// StopReason tells why a run ended.
type StopReason int

const (
	// StopNone means the run has not ended.
	StopNone StopReason = iota
	// StopTrivial means there were no more elements than clusters, so every
	// element became its own cluster without optimization.
	StopTrivial
	// StopZeroEpochs means the epoch budget was zero and the seeding was
	// returned as is.
	StopZeroEpochs
	// StopNoChange means an epoch moved no element.
	StopNoChange
	// StopBelowThreshold means the relative improvement of the average squared
	// distance fell below the configured minimum.
	StopBelowThreshold
	// StopMaxEpochs means the epoch budget ran out before convergence.
	StopMaxEpochs
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopTrivial:
		return "trivial"
	case StopZeroEpochs:
		return "zero-epochs"
	case StopNoChange:
		return "no-change"
	case StopBelowThreshold:
		return "below-threshold"
	case StopMaxEpochs:
		return "max-epochs"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Converged reports whether the run ended on a convergence criterion.
func (r StopReason) Converged() bool {
	return r == StopNoChange || r == StopBelowThreshold
}

// EpochStats describes the assignment step of one epoch. Epoch is -1 for the
// full reassignment pass that starts a recluster.
type EpochStats struct {
	Epoch           int
	ChangedClusters int
	ChangedElements int
	AvgSqDist       float64
}

// Config controls a run. Callers validate it; the engine assumes K >= 1,
// MaxEpochs >= 0 and a finite, non-negative MinRelativeImprovement.
type Config struct {
	K                      int
	MaxEpochs              int
	MinRelativeImprovement float64
	PlusPlus               bool
	// Workers shards the assignment pass. Values <= 1 run single-threaded.
	Workers int
	// OnEpoch, if set, is called after the assignment step of every epoch.
	OnEpoch func(EpochStats)
}

// Outcome is the final state of a run.
type Outcome struct {
	// K is the number of cluster slots, including slots that ended empty.
	K int
	// Closest holds the owning cluster slot of every element.
	Closest []int
	// SqDist holds the squared distance of every element to its owner's
	// centroid as of the last assignment.
	SqDist    []float64
	Epochs    int
	Reason    StopReason
	AvgSqDist float64
}

// Cluster runs seeding and Lloyd iterations over a vectorized population.
func Cluster(ctx context.Context, set *sparse.Set, rng Rand, cfg Config) (*Outcome, error) {
	n := set.Len()
	if n <= cfg.K {
		return trivial(n), nil
	}

	var s *State
	if cfg.PlusPlus {
		s = SeedPlusPlus(set, cfg.K, rng)
	} else {
		s = SeedRoundRobin(set, cfg.K)
	}

	if cfg.MaxEpochs == 0 {
		return s.unoptimized(), nil
	}
	return s.Run(ctx, cfg)
}

// Recluster starts from a caller-supplied assignment. assignment[i] is the
// cell of element i, or -1 if the element is unclustered. Every cell in
// [0, k) must own at least one element.
//
// After centroids are built from the given cells, every element is
// reassigned once before the ordinary Lloyd iterations start.
func Recluster(ctx context.Context, set *sparse.Set, assignment []int, k int, cfg Config) (*Outcome, error) {
	s := SeedPartition(set, assignment, k)
	moved, err := s.ReassignAll(ctx, cfg.Workers)
	if err != nil {
		return nil, err
	}
	if cfg.OnEpoch != nil {
		cfg.OnEpoch(EpochStats{Epoch: -1, ChangedClusters: k, ChangedElements: moved, AvgSqDist: s.avgSqDist()})
	}
	s.recomputeAll()

	cfg.K = k
	if cfg.MaxEpochs == 0 {
		return s.outcome(0, StopZeroEpochs), nil
	}
	return s.Run(ctx, cfg)
}

func trivial(n int) *Outcome {
	out := &Outcome{
		K:       n,
		Closest: make([]int, n),
		SqDist:  make([]float64, n),
		Reason:  StopTrivial,
	}
	for i := range out.Closest {
		out.Closest[i] = i
	}
	return out
}
