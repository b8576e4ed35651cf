package kmeans

import (
	"context"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/veclust/internal/sparse"
)

// State is the mutable assignment state owned by one run.
type State struct {
	set *sparse.Set
	k   int

	centroids     [][]float64
	centroidNorms []float64
	counts        []int

	closest []int
	sqDist  []float64

	// changed marks the centroids that moved since the previous epoch.
	changed *roaring.Bitmap
}

func newState(set *sparse.Set, k int) *State {
	n := set.Len()
	s := &State{
		set:           set,
		k:             k,
		centroids:     make([][]float64, k),
		centroidNorms: make([]float64, k),
		counts:        make([]int, k),
		closest:       make([]int, n),
		sqDist:        make([]float64, n),
		changed:       roaring.New(),
	}
	dim := set.Dim()
	for c := range s.centroids {
		s.centroids[c] = make([]float64, dim)
	}
	for i := range s.sqDist {
		s.sqDist[i] = math.Inf(1)
	}
	s.changed.AddRange(0, uint64(k))
	return s
}

// Centroid returns the current centroid of cluster c. The slice is owned by
// the state.
func (s *State) Centroid(c int) []float64 {
	return s.centroids[c]
}

// Closest returns the current owner of every element.
func (s *State) Closest() []int {
	return s.closest
}

// Run performs Lloyd epochs until a convergence criterion fires, the epoch
// budget is spent, or ctx ends.
func (s *State) Run(ctx context.Context, cfg Config) (*Outcome, error) {
	lastErr := math.NaN()

	for epoch := 0; epoch < cfg.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plan := s.plan()
		moved, touched, err := s.assign(ctx, cfg.Workers, plan)
		if err != nil {
			return nil, err
		}

		avg := s.avgSqDist()
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(EpochStats{
				Epoch:           epoch,
				ChangedClusters: len(plan.changedIdx),
				ChangedElements: moved,
				AvgSqDist:       avg,
			})
		}

		if moved == 0 {
			return s.outcome(epoch+1, StopNoChange), nil
		}
		if !math.IsNaN(lastErr) && relativeImprovement(lastErr, avg) < cfg.MinRelativeImprovement {
			return s.outcome(epoch+1, StopBelowThreshold), nil
		}

		s.changed = touched
		s.recompute()
		lastErr = avg
	}

	return s.outcome(cfg.MaxEpochs, StopMaxEpochs), nil
}

// relativeImprovement returns |2·(last − cur)| / (|last| + |cur|), or +Inf
// when both errors are zero so the criterion never fires on it.
func relativeImprovement(last, cur float64) float64 {
	denom := math.Abs(last) + math.Abs(cur)
	if denom == 0 {
		return math.Inf(1)
	}
	return math.Abs(2*(last-cur)) / denom
}

// epochPlan is the read-only view of the change set shared by all shards of
// one assignment pass.
type epochPlan struct {
	isChanged    []bool
	changedIdx   []int
	unchangedIdx []int
}

// plan splits the live clusters into changed and unchanged, both in index
// order. Retired clusters are in neither list.
func (s *State) plan() epochPlan {
	p := epochPlan{isChanged: make([]bool, s.k)}
	for c := 0; c < s.k; c++ {
		if s.counts[c] == 0 {
			continue
		}
		if s.changed.Contains(uint32(c)) {
			p.isChanged[c] = true
			p.changedIdx = append(p.changedIdx, c)
		} else {
			p.unchangedIdx = append(p.unchangedIdx, c)
		}
	}
	return p
}

// assign reassigns every element against plan, sharding the population across
// workers. It returns the number of elements that moved and the set of
// clusters that gained or lost members.
func (s *State) assign(ctx context.Context, workers int, plan epochPlan) (int, *roaring.Bitmap, error) {
	n := len(s.closest)
	if workers <= 1 || n < 2*workers {
		moved, touched := s.assignRange(0, n, plan)
		return moved, touched, nil
	}

	chunk := (n + workers - 1) / workers
	moved := make([]int, workers)
	touched := make([]*roaring.Bitmap, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			touched[w] = roaring.New()
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			moved[w], touched[w] = s.assignRange(lo, hi, plan)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	total := 0
	for _, m := range moved {
		total += m
	}
	return total, roaring.FastOr(touched...), nil
}

// assignRange reassigns elements [lo, hi). It writes only to that range of
// closest and sqDist.
func (s *State) assignRange(lo, hi int, plan epochPlan) (int, *roaring.Bitmap) {
	touched := roaring.New()
	moved := 0

	for i := lo; i < hi; i++ {
		owner := s.closest[i]
		cached := s.sqDist[i]

		best := owner
		bestDist := math.Inf(1)
		if owner >= 0 && !plan.isChanged[owner] {
			bestDist = cached
		}

		for _, c := range plan.changedIdx {
			if d := s.distance(i, c); d < bestDist {
				best, bestDist = c, d
			}
		}

		// Unchanged centroids were no closer than the cached distance last
		// epoch and have not moved since.
		if bestDist > cached {
			for _, c := range plan.unchangedIdx {
				if d := s.distance(i, c); d < bestDist {
					best, bestDist = c, d
				}
			}
		}

		s.sqDist[i] = bestDist
		if best != owner {
			s.closest[i] = best
			if owner >= 0 {
				touched.Add(uint32(owner))
			}
			touched.Add(uint32(best))
			moved++
		}
	}

	return moved, touched
}

// ReassignAll assigns every element to its nearest centroid among all live
// clusters, ignoring cached distances.
func (s *State) ReassignAll(ctx context.Context, workers int) (int, error) {
	for i := range s.sqDist {
		s.sqDist[i] = math.Inf(1)
	}
	s.changed = roaring.New()
	s.changed.AddRange(0, uint64(s.k))

	moved, _, err := s.assign(ctx, workers, s.plan())
	return moved, err
}

func (s *State) distance(i, c int) float64 {
	return sparse.SquaredDistance(s.set.Vectors[i], s.set.SqNorms[i], s.centroids[c], s.centroidNorms[c])
}

func (s *State) avgSqDist() float64 {
	if len(s.sqDist) == 0 {
		return 0
	}
	return floats.Sum(s.sqDist) / float64(len(s.sqDist))
}

// recompute rebuilds the centroids of the changed clusters as the mean of
// their members. A cluster left without members keeps its last centroid and
// is retired.
func (s *State) recompute() {
	clear(s.counts)
	for _, c := range s.closest {
		if c >= 0 {
			s.counts[c]++
		}
	}

	rebuild := make([]bool, s.k)
	it := s.changed.Iterator()
	for it.HasNext() {
		c := int(it.Next())
		if s.counts[c] > 0 {
			rebuild[c] = true
			clear(s.centroids[c])
		}
	}

	for i, c := range s.closest {
		if c >= 0 && rebuild[c] {
			s.set.Vectors[i].AddTo(s.centroids[c])
		}
	}

	for c, ok := range rebuild {
		if !ok {
			continue
		}
		floats.Scale(1/float64(s.counts[c]), s.centroids[c])
		s.centroidNorms[c] = floats.Dot(s.centroids[c], s.centroids[c])
	}
}

func (s *State) recomputeAll() {
	s.changed = roaring.New()
	s.changed.AddRange(0, uint64(s.k))
	s.recompute()
}

func (s *State) outcome(epochs int, reason StopReason) *Outcome {
	return &Outcome{
		K:         s.k,
		Closest:   s.closest,
		SqDist:    s.sqDist,
		Epochs:    epochs,
		Reason:    reason,
		AvgSqDist: s.avgSqDist(),
	}
}

// unoptimized reports the seeding's assignment with true distances to the
// seeded centroids.
func (s *State) unoptimized() *Outcome {
	for i, c := range s.closest {
		s.sqDist[i] = s.distance(i, c)
	}
	return s.outcome(0, StopZeroEpochs)
}
