// Package veclust provides k-means clustering for arbitrary Go values.
//
// Elements are turned into sparse feature vectors by a feature.Extractor,
// then partitioned by Lloyd's algorithm with k-means++ seeding. Each epoch
// only recomputes distances to centroids that moved, which keeps iterations
// cheap once most clusters have settled.
//
// # Quick Start
//
//	km, err := veclust.New[string](feature.BagOfWords{Lowercase: true}, 8)
//	if err != nil {
//	    panic(err)
//	}
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	res, err := km.Cluster(ctx, docs, rng)
//	if err != nil {
//	    panic(err)
//	}
//
//	for _, c := range res.Clusters {
//	    fmt.Println(c.Score, c.Elements())
//	}
//
// Clusters are ranked by the average fit of their members, and members by
// their own fit. A member's score is its negated squared distance to the
// centroid, so higher is better.
//
// # Fewer Clusters Than Requested
//
// A Result may hold fewer clusters than requested. With no more elements
// than clusters every element becomes a singleton; clusters that lose all
// members during iteration are retired and never emitted.
//
// # Reclustering
//
// Recluster starts from an existing partition plus unclustered elements:
//
//	res, err := km.Recluster(ctx, [][]string{cellA, cellB}, newDocs)
//
// Every element must appear exactly once, or ErrDuplicateAssignment is
// returned.
//
// # Convergence
//
// A run stops when an epoch moves no element, when the relative improvement
// of the average squared distance falls below WithMinRelativeImprovement, or
// after WithMaxEpochs epochs. Result.Reason tells which.
//
// # Parallelism
//
// WithWorkers shards the assignment step across goroutines. Results are
// identical to a single worker.
//
// # Observability
//
// Progress goes to a Reporter (see WithLogger and ThrottledReporter) and
// statistics to a MetricsCollector:
//
//	logger := veclust.NewTextLogger(slog.LevelDebug)
//	mc := &veclust.BasicMetricsCollector{}
//	km, _ := veclust.New[string](ex, 8, veclust.WithLogger(logger), veclust.WithMetricsCollector(mc))
//
// # Models
//
// Result.Model exports the centroids for assigning new elements later, and
// the model package saves them to any blobstore.Store.
package veclust
