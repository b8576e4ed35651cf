// Package testutil provides testing utilities for veclust.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and synthetic populations with known
// cluster labels.
//
// # Random Source
//
//	rng := testutil.NewRNG(seed)
//	res, err := km.Cluster(ctx, elements, rng)
//
// # Synthetic Populations
//
//	vectors, labels := rng.ClusteredVectors(1000, 16, 4, 0.5)
//	km, _ := veclust.New(testutil.VectorExtractor(vectors), 4)
//	res, _ := km.Cluster(ctx, testutil.Indices(len(vectors)), rng)
//
// # Quality
//
//	purity := testutil.Purity(labels, res.Sets())
package testutil
