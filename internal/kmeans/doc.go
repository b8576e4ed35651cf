// Package kmeans implements Lloyd's algorithm over sparse vectors.
//
// Seeding is k-means++ (distance-weighted sampling) or round-robin. Each
// epoch only recomputes distances to centroids that moved since the previous
// epoch; an element whose own centroid did not move keeps its cached distance
// as the bound to beat. Clusters that lose every member are retired and
// never receive elements again.
//
// Used by the public veclust package; everything here works on element
// positions, never on the elements themselves.
package kmeans
