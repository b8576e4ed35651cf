// Package model holds trained clustering models.
//
// A Model is exported from a clustering result. It keeps one dense centroid
// per emitted cluster together with the vocabulary that names the centroid
// dimensions, so new elements can be assigned after the run:
//
//	m := result.Model()
//	cluster, sqDist, err := m.Assign(features)
//
// # Persistence
//
// Save and Load write a model to a blobstore.Store as a self-describing blob:
//
//	[magic "VCLM"][version][codec name len][codec name][compression][payload]
//
// The payload is the codec-encoded model, compressed with the recorded
// compression type. Load selects codec and compression from the header.
package model
