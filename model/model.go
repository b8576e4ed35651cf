package model

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Model is a trained clustering: one centroid per cluster over a named
// feature space.
type Model struct {
	ID         string      `json:"id" msgpack:"id"`
	CreatedAt  time.Time   `json:"created_at" msgpack:"created_at"`
	Vocabulary []string    `json:"vocabulary" msgpack:"vocabulary"`
	Centroids  [][]float64 `json:"centroids" msgpack:"centroids"`
	Sizes      []int       `json:"sizes" msgpack:"sizes"`
	AvgSqDist  float64     `json:"avg_sq_dist" msgpack:"avg_sq_dist"`

	once    sync.Once
	index   map[string]int
	sqNorms []float64
}

// New creates a model. If id is empty a random UUID is used.
func New(id string, vocabulary []string, centroids [][]float64, sizes []int, avgSqDist float64) *Model {
	if id == "" {
		id = uuid.NewString()
	}
	return &Model{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Vocabulary: vocabulary,
		Centroids:  centroids,
		Sizes:      sizes,
		AvgSqDist:  avgSqDist,
	}
}

// NumClusters returns the number of centroids.
func (m *Model) NumClusters() int {
	return len(m.Centroids)
}

// Dim returns the number of feature dimensions.
func (m *Model) Dim() int {
	return len(m.Vocabulary)
}

// Validate checks that every centroid spans the vocabulary and that sizes
// match centroids.
func (m *Model) Validate() error {
	if len(m.Sizes) != len(m.Centroids) {
		return fmt.Errorf("model %s: %d sizes for %d centroids", m.ID, len(m.Sizes), len(m.Centroids))
	}
	for c, cent := range m.Centroids {
		if len(cent) != len(m.Vocabulary) {
			return fmt.Errorf("model %s: centroid %d has %d dimensions, vocabulary has %d", m.ID, c, len(cent), len(m.Vocabulary))
		}
	}
	return nil
}

func (m *Model) init() {
	m.once.Do(func() {
		m.index = make(map[string]int, len(m.Vocabulary))
		for i, name := range m.Vocabulary {
			if _, ok := m.index[name]; !ok {
				m.index[name] = i
			}
		}
		m.sqNorms = make([]float64, len(m.Centroids))
		for c, cent := range m.Centroids {
			m.sqNorms[c] = floats.Dot(cent, cent)
		}
	})
}

// Assign returns the nearest centroid to the given features and the squared
// distance to it. Features outside the vocabulary have no centroid
// coordinate; they add to the distance but cannot change the choice.
// Ties go to the lowest cluster index. Assign returns -1 for a model without
// clusters.
func (m *Model) Assign(features map[string]float64) (int, float64, error) {
	m.init()

	var xNorm float64
	indices := make([]int, 0, len(features))
	values := make([]float64, 0, len(features))
	for name, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return -1, 0, fmt.Errorf("feature %q has non-finite value %v", name, v)
		}
		xNorm += v * v
		if idx, ok := m.index[name]; ok {
			indices = append(indices, idx)
			values = append(values, v)
		}
	}

	best, bestDist := -1, math.Inf(1)
	for c, cent := range m.Centroids {
		var dot float64
		for j, idx := range indices {
			dot += values[j] * cent[idx]
		}
		d := m.sqNorms[c] + xNorm - 2*dot
		if d < 0 {
			d = 0
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best < 0 {
		return -1, 0, nil
	}
	return best, bestDist, nil
}
