package veclust

import (
	"sync"

	"github.com/hupe1980/veclust/internal/kmeans"
	"github.com/hupe1980/veclust/internal/sparse"
	"github.com/hupe1980/veclust/model"
)

// ExactMatchScore is the score of an element that sits exactly on its
// centroid. It is the negative number closest to zero.
const ExactMatchScore = kmeans.ExactMatchScore

// Member is an element together with how well it fits its cluster.
type Member[E any] struct {
	Element E
	// Score is the negated squared distance to the cluster centroid, so
	// higher is better. An exact match scores ExactMatchScore.
	Score float64
}

// Cluster is one non-empty cluster of a Result.
type Cluster[E any] struct {
	// Score is the average member score.
	Score float64
	// Members are ordered by descending score.
	Members []Member[E]
}

// Len returns the number of members.
func (c Cluster[E]) Len() int {
	return len(c.Members)
}

// Elements returns the members without scores, best fit first.
func (c Cluster[E]) Elements() []E {
	out := make([]E, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Element
	}
	return out
}

// Result is the outcome of a Cluster or Recluster call.
//
// Every input element is a member of exactly one cluster. Empty clusters are
// never included.
type Result[E any] struct {
	// RunID identifies the run in reports and metrics.
	RunID string
	// Clusters are ordered by descending score.
	Clusters []Cluster[E]
	// Epochs is the number of Lloyd epochs that ran.
	Epochs int
	// Reason tells why the run ended.
	Reason StopReason
	// AvgSqDist is the final average squared distance of elements to their
	// centroids.
	AvgSqDist float64

	set    *sparse.Set
	ranked []kmeans.Ranked

	modelOnce sync.Once
	model     *model.Model
}

func buildResult[E comparable](runID string, elements []E, set *sparse.Set, out *kmeans.Outcome) *Result[E] {
	ranked := kmeans.Rank(out)

	clusters := make([]Cluster[E], len(ranked))
	for r, rc := range ranked {
		members := make([]Member[E], len(rc.Members))
		for j, m := range rc.Members {
			members[j] = Member[E]{Element: elements[m.Index], Score: m.Score}
		}
		clusters[r] = Cluster[E]{Score: rc.Score, Members: members}
	}

	return &Result[E]{
		RunID:     runID,
		Clusters:  clusters,
		Epochs:    out.Epochs,
		Reason:    out.Reason,
		AvgSqDist: out.AvgSqDist,
		set:       set,
		ranked:    ranked,
	}
}

// Len returns the number of clusters.
func (r *Result[E]) Len() int {
	return len(r.Clusters)
}

// Sets returns the plain partition, in cluster and member order.
func (r *Result[E]) Sets() [][]E {
	sets := make([][]E, len(r.Clusters))
	for i, c := range r.Clusters {
		sets[i] = c.Elements()
	}
	return sets
}

// Model exports the clustering as a model that assigns new elements. Model
// cluster c corresponds to r.Clusters[c]; its centroid is the mean of the
// cluster's members.
//
// The model is built on first use and shared by later calls.
func (r *Result[E]) Model() *model.Model {
	r.modelOnce.Do(func() {
		means := kmeans.Means(r.set, r.ranked)
		sizes := make([]int, len(r.ranked))
		for i, rc := range r.ranked {
			sizes[i] = len(rc.Members)
		}
		r.model = model.New(r.RunID, r.set.Vocabulary, means, sizes, r.AvgSqDist)
		r.set, r.ranked = nil, nil
	})
	return r.model
}
