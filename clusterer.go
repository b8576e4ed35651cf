package veclust

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/veclust/feature"
	"github.com/hupe1980/veclust/internal/kmeans"
	"github.com/hupe1980/veclust/internal/sparse"
)

// Rand is the random source used for k-means++ seeding.
// *math/rand/v2.Rand satisfies it.
//
// A Rand is not safe for concurrent use: never share one between concurrent
// Cluster calls.
type Rand = kmeans.Rand

// StopReason tells why a run ended.
type StopReason = kmeans.StopReason

const (
	// StopTrivial: there were no more elements than clusters.
	StopTrivial = kmeans.StopTrivial
	// StopZeroEpochs: the epoch budget was zero.
	StopZeroEpochs = kmeans.StopZeroEpochs
	// StopNoChange: an epoch moved no element.
	StopNoChange = kmeans.StopNoChange
	// StopBelowThreshold: the relative improvement fell below the minimum.
	StopBelowThreshold = kmeans.StopBelowThreshold
	// StopMaxEpochs: the epoch budget ran out.
	StopMaxEpochs = kmeans.StopMaxEpochs
)

// KMeans clusters elements of type E by the squared Euclidean distance of
// their feature vectors.
//
// A KMeans is immutable after New and safe for concurrent use, provided every
// concurrent call brings its own Rand.
type KMeans[E comparable] struct {
	extractor   feature.Extractor[E]
	numClusters int
	opts        options
}

// New creates a clusterer that partitions elements into at most numClusters
// clusters.
//
// All arguments are validated here; violations match ErrInvalidArgument.
func New[E comparable](extractor feature.Extractor[E], numClusters int, optFns ...Option) (*KMeans[E], error) {
	if extractor == nil {
		return nil, &ErrInvalidParameter{Name: "extractor", Value: nil, Reason: "must not be nil"}
	}
	if numClusters < 1 {
		return nil, &ErrInvalidParameter{Name: "numClusters", Value: numClusters, Reason: "must be >= 1"}
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &KMeans[E]{
		extractor:   extractor,
		numClusters: numClusters,
		opts:        opts,
	}, nil
}

// NumClusters returns the requested number of clusters.
func (km *KMeans[E]) NumClusters() int {
	return km.numClusters
}

// resolve layers per-call options over the clusterer's options.
func (km *KMeans[E]) resolve(optFns []Option) (options, error) {
	opts := km.opts
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

// Cluster partitions elements into at most NumClusters clusters.
//
// If there are no more elements than clusters, every element becomes its own
// cluster. Clusters that end up empty are dropped, so fewer clusters than
// requested may be returned. If rng is nil, a randomly seeded source is used.
//
// Options override the clusterer's options for this call only.
func (km *KMeans[E]) Cluster(ctx context.Context, elements []E, rng Rand, optFns ...Option) (*Result[E], error) {
	opts, err := km.resolve(optFns)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	r := newRun(ctx, opts, false, km.numClusters)

	set, err := vectorize(r, elements, km.extractor)
	if err != nil {
		return nil, r.fail(err)
	}

	out, err := kmeans.Cluster(ctx, set, rng, r.config(km.numClusters))
	if err != nil {
		return nil, r.fail(err)
	}
	return finish(r, elements, set, out), nil
}

// Recluster continues clustering from an existing partition.
//
// Each cell of partition seeds one cluster with the mean of its members.
// Then every element, including the unclustered ones, is reassigned to its
// nearest cluster before ordinary iterations continue. Cells may lose all
// members, so the result can have fewer clusters than cells.
//
// Cells must be non-empty, and every element must appear exactly once across
// all cells and unclustered; otherwise an error matching
// ErrDuplicateAssignment (or ErrInvalidArgument) is returned before any work
// is done. The clusterer's NumClusters is not used.
func (km *KMeans[E]) Recluster(ctx context.Context, partition [][]E, unclustered []E, optFns ...Option) (*Result[E], error) {
	opts, err := km.resolve(optFns)
	if err != nil {
		return nil, err
	}

	elements, assignment, err := flattenPartition(partition, unclustered)
	if err != nil {
		return nil, err
	}

	k := len(partition)
	r := newRun(ctx, opts, true, k)

	set, err := vectorize(r, elements, km.extractor)
	if err != nil {
		return nil, r.fail(err)
	}

	out, err := kmeans.Recluster(ctx, set, assignment, k, r.config(k))
	if err != nil {
		return nil, r.fail(err)
	}
	return finish(r, elements, set, out), nil
}

// flattenPartition returns the union of all cells and unclustered elements,
// with the cell index of every element (-1 for unclustered).
func flattenPartition[E comparable](partition [][]E, unclustered []E) ([]E, []int, error) {
	if len(partition) == 0 {
		return nil, nil, &ErrInvalidParameter{Name: "partition", Value: 0, Reason: "must have at least one cell"}
	}

	n := len(unclustered)
	for i, cell := range partition {
		if len(cell) == 0 {
			return nil, nil, &ErrInvalidParameter{Name: fmt.Sprintf("partition[%d]", i), Value: 0, Reason: "cell must not be empty"}
		}
		n += len(cell)
	}

	elements := make([]E, 0, n)
	assignment := make([]int, 0, n)
	seen := make(map[E]int, n)

	add := func(e E, loc int) error {
		if prev, ok := seen[e]; ok {
			return &ErrDuplicateElement{Element: e, First: prev, Second: loc}
		}
		seen[e] = loc
		elements = append(elements, e)
		assignment = append(assignment, loc)
		return nil
	}

	for i, cell := range partition {
		for _, e := range cell {
			if err := add(e, i); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, e := range unclustered {
		if err := add(e, -1); err != nil {
			return nil, nil, err
		}
	}
	return elements, assignment, nil
}

// run carries the reporting state of one Cluster or Recluster call.
type run struct {
	ctx       context.Context
	id        string
	opts      options
	start     time.Time
	recluster bool
	requested int

	elements   int
	dimensions int
}

func newRun(ctx context.Context, opts options, recluster bool, requested int) *run {
	return &run{
		ctx:       ctx,
		id:        uuid.NewString(),
		opts:      opts,
		start:     time.Now(),
		recluster: recluster,
		requested: requested,
	}
}

func (r *run) report(level slog.Level, msg string, args ...any) {
	if !r.opts.reporter.Enabled(r.ctx, level) {
		return
	}
	r.opts.reporter.Report(r.ctx, level, msg, append([]any{"run_id", r.id}, args...)...)
}

// vectorize runs the extractor over elements with a fresh symbol table.
func vectorize[E any](r *run, elements []E, ex feature.Extractor[E]) (*sparse.Set, error) {
	set, err := sparse.Vectorize(r.ctx, elements, ex, r.opts.symbolTable())
	if err != nil {
		return nil, translateError(err)
	}

	r.elements = set.Len()
	r.dimensions = set.Dim()

	msg := "clustering"
	if r.recluster {
		msg = "reclustering"
	}
	r.report(slog.LevelInfo, msg,
		"elements", r.elements,
		"clusters", r.requested,
		"dimensions", r.dimensions,
	)
	return set, nil
}

func (r *run) config(k int) kmeans.Config {
	return kmeans.Config{
		K:                      k,
		MaxEpochs:              r.opts.maxEpochs,
		MinRelativeImprovement: r.opts.minRelativeImprovement,
		PlusPlus:               r.opts.plusPlus,
		Workers:                r.opts.workers,
		OnEpoch:                r.onEpoch,
	}
}

func (r *run) onEpoch(es kmeans.EpochStats) {
	r.opts.metricsCollector.RecordEpoch(EpochStats{
		RunID:           r.id,
		Epoch:           es.Epoch,
		ChangedClusters: es.ChangedClusters,
		ChangedElements: es.ChangedElements,
		AvgSqDist:       es.AvgSqDist,
	})
	r.report(slog.LevelDebug, "epoch",
		"epoch", es.Epoch,
		"changed_clusters", es.ChangedClusters,
		"changed_elements", es.ChangedElements,
		"avg_sq_dist", es.AvgSqDist,
	)
}

func (r *run) stats() RunStats {
	return RunStats{
		RunID:      r.id,
		Recluster:  r.recluster,
		Elements:   r.elements,
		Dimensions: r.dimensions,
		Requested:  r.requested,
		Duration:   time.Since(r.start),
	}
}

func (r *run) fail(err error) error {
	stats := r.stats()
	stats.Err = err
	r.opts.metricsCollector.RecordRun(stats)
	r.report(slog.LevelWarn, "clustering failed", "error", err)
	return err
}

func finish[E comparable](r *run, elements []E, set *sparse.Set, out *kmeans.Outcome) *Result[E] {
	res := buildResult(r.id, elements, set, out)

	stats := r.stats()
	stats.Emitted = len(res.Clusters)
	stats.Epochs = out.Epochs
	stats.Reason = out.Reason
	stats.AvgSqDist = out.AvgSqDist
	r.opts.metricsCollector.RecordRun(stats)

	r.report(slog.LevelInfo, "clustering finished",
		"reason", out.Reason.String(),
		"epochs", out.Epochs,
		"clusters", len(res.Clusters),
		"avg_sq_dist", out.AvgSqDist,
	)
	return res
}
