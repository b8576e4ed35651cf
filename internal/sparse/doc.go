// Package sparse holds sparse feature vectors and the vectorizer that builds
// them from domain elements.
package sparse
