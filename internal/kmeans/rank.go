package kmeans

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/veclust/internal/sparse"
)

// ExactMatchScore is the score of an element at distance exactly zero from
// its centroid. It is the negative number closest to zero, which keeps every
// score strictly negative instead of producing -0.
const ExactMatchScore = -math.SmallestNonzeroFloat64

// Member is an element position with its fit score (higher is better).
type Member struct {
	Index int
	Score float64
}

// Ranked is one non-empty cluster of the final clustering.
type Ranked struct {
	// Slot is the cluster slot the members were assigned to.
	Slot    int
	Score   float64
	Members []Member
}

// Score converts a squared distance into a fit score.
func Score(sqDist float64) float64 {
	if sqDist == 0 {
		return ExactMatchScore
	}
	return -sqDist
}

// Rank builds the clustering from an outcome. Empty slots are dropped.
// Clusters are ordered by descending average member score, members by
// descending score; ties keep slot and element order.
func Rank(out *Outcome) []Ranked {
	bySlot := make([][]Member, out.K)
	totals := make([]float64, out.K)
	for i, c := range out.Closest {
		score := Score(out.SqDist[i])
		bySlot[c] = append(bySlot[c], Member{Index: i, Score: score})
		totals[c] += score
	}

	ranked := make([]Ranked, 0, out.K)
	for c, members := range bySlot {
		if len(members) == 0 {
			continue
		}
		slices.SortStableFunc(members, func(a, b Member) int {
			return cmp.Compare(b.Score, a.Score)
		})
		ranked = append(ranked, Ranked{
			Slot:    c,
			Score:   totals[c] / float64(len(members)),
			Members: members,
		})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

// Means returns the mean vector of the members of every ranked cluster, in
// ranked order.
func Means(set *sparse.Set, ranked []Ranked) [][]float64 {
	means := make([][]float64, len(ranked))
	for r, cl := range ranked {
		mean := make([]float64, set.Dim())
		for _, m := range cl.Members {
			set.Vectors[m.Index].AddTo(mean)
		}
		floats.Scale(1/float64(len(cl.Members)), mean)
		means[r] = mean
	}
	return means
}
