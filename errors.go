package veclust

import (
	"errors"
	"fmt"

	"github.com/hupe1980/veclust/internal/sparse"
)

var (
	// ErrInvalidArgument is matched by every precondition violation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateAssignment is returned by Recluster when an element appears
	// in more than one cell, or in a cell and the unclustered set.
	ErrDuplicateAssignment = fmt.Errorf("%w: element assigned more than once", ErrInvalidArgument)
)

// ErrInvalidParameter indicates a rejected constructor or call argument.
type ErrInvalidParameter struct {
	Name   string
	Value  any
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

func (e *ErrInvalidParameter) Unwrap() error { return ErrInvalidArgument }

// ErrDuplicateElement names the element behind ErrDuplicateAssignment and
// the two places it was found. A location of -1 is the unclustered set.
type ErrDuplicateElement struct {
	Element any
	First   int
	Second  int
}

func (e *ErrDuplicateElement) Error() string {
	return fmt.Sprintf("element %v found in %s and %s", e.Element, location(e.First), location(e.Second))
}

func (e *ErrDuplicateElement) Unwrap() error { return ErrDuplicateAssignment }

func location(cell int) string {
	if cell < 0 {
		return "unclustered set"
	}
	return fmt.Sprintf("cell %d", cell)
}

// ErrInvalidFeature indicates that the extractor produced a NaN or infinite
// feature value.
//
// The original underlying error can be accessed via errors.As.
type ErrInvalidFeature struct {
	Element int
	Feature string
	Value   float64
	cause   error
}

func (e *ErrInvalidFeature) Error() string {
	return fmt.Sprintf("invalid feature %q of element %d: %v", e.Feature, e.Element, e.Value)
}

func (e *ErrInvalidFeature) Unwrap() []error { return []error{ErrInvalidArgument, e.cause} }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var nf *sparse.ErrNonFiniteFeature
	if errors.As(err, &nf) {
		return &ErrInvalidFeature{Element: nf.Element, Feature: nf.Feature, Value: nf.Value, cause: err}
	}

	return err
}
