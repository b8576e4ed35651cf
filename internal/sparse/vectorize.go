package sparse

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/hupe1980/veclust/feature"
)

// ErrNonFiniteFeature reports a NaN or infinite feature value.
type ErrNonFiniteFeature struct {
	Element int
	Feature string
	Value   float64
}

func (e *ErrNonFiniteFeature) Error() string {
	return fmt.Sprintf("element %d: feature %q has non-finite value %v", e.Element, e.Feature, e.Value)
}

// ErrExtract wraps an error returned by the feature extractor.
type ErrExtract struct {
	Element int
	cause   error
}

func (e *ErrExtract) Error() string {
	return fmt.Sprintf("extract features of element %d: %v", e.Element, e.cause)
}

func (e *ErrExtract) Unwrap() error { return e.cause }

// Set is a vectorized population: one sparse vector and squared norm per
// element, plus the names of the dimensions.
type Set struct {
	Vectors []Vector
	SqNorms []float64
	// Vocabulary maps dimension index to feature name. Entries for indices
	// that were handed out by the symbol table before vectorization but never
	// observed are empty.
	Vocabulary []string
}

// Len returns the number of vectors.
func (s *Set) Len() int { return len(s.Vectors) }

// Dim returns the number of dimensions.
func (s *Set) Dim() int { return len(s.Vocabulary) }

// Vectorize extracts the features of every element and maps them onto the
// dimensions of symbols.
//
// Feature names of one element are added to the table in sorted order, so the
// dimension layout only depends on the element order and the extractor.
// Zero-valued features are registered but not stored.
func Vectorize[E any](ctx context.Context, elements []E, ex feature.Extractor[E], symbols feature.SymbolTable) (*Set, error) {
	set := &Set{
		Vectors: make([]Vector, len(elements)),
		SqNorms: make([]float64, len(elements)),
	}

	var names []string
	for i, e := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		features, err := ex.Features(e)
		if err != nil {
			return nil, &ErrExtract{Element: i, cause: err}
		}

		keys := slices.Sorted(maps.Keys(features))
		vec := Vector{
			Indices: make([]int, 0, len(keys)),
			Values:  make([]float64, 0, len(keys)),
		}
		for _, name := range keys {
			val := features[name]
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, &ErrNonFiniteFeature{Element: i, Feature: name, Value: val}
			}

			idx := symbols.GetOrAddSymbol(name)
			if idx < 0 {
				return nil, fmt.Errorf("symbol table returned negative index %d for %q", idx, name)
			}
			if idx >= len(names) {
				names = append(names, make([]string, idx+1-len(names))...)
			}
			names[idx] = name

			if val == 0 {
				continue
			}
			vec.Indices = append(vec.Indices, idx)
			vec.Values = append(vec.Values, val)
		}

		set.Vectors[i] = vec
		set.SqNorms[i] = vec.SquaredNorm()
	}

	dim := symbols.NumSymbols()
	if dim < len(names) {
		return nil, fmt.Errorf("symbol table reports %d symbols but handed out index %d", dim, len(names)-1)
	}
	set.Vocabulary = make([]string, dim)
	copy(set.Vocabulary, names)

	return set, nil
}
