package classifier

import (
	"fmt"
	"iter"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// Checked is a vector input validated lazily as it is consumed. It can be
// iterated once.
type Checked struct {
	src      iter.Seq[vector.Array]
	consumed bool
	err      error
}

// ValidateDimensions guards in against vectors that are not 1-dimensional or
// whose length differs from the first vector. A *vector.Matrix is consistent
// by construction and is returned unchanged; any other input is wrapped in a
// *Checked whose checks run per vector as it is consumed.
func ValidateDimensions(in vector.Input) vector.Input {
	if m, ok := in.(*vector.Matrix); ok {
		return m
	}
	return &Checked{src: in.Vectors()}
}

// Vectors implements vector.Input. Iteration stops at the first invalid
// vector; Err reports why.
func (c *Checked) Vectors() iter.Seq[vector.Array] {
	return func(yield func(vector.Array) bool) {
		if c.consumed {
			if c.err == nil {
				c.err = ErrConsumed
			}
			return
		}
		c.consumed = true

		first := -1
		i := 0
		for v := range c.src {
			if v.Ndim() != 1 {
				c.err = fmt.Errorf("%w (vector %d has shape %v)", ErrNotOneDimensional, i, v.Shape())
				return
			}
			if first < 0 {
				first = v.Len()
			} else if v.Len() != first {
				c.err = fmt.Errorf("%w (vector %d has length %d, expected %d)", ErrInconsistentDimension, i, v.Len(), first)
				return
			}
			if !yield(v) {
				return
			}
			i++
		}
	}
}

// Err returns the validation failure, if any
func (c *Checked) Err() error {
	return c.err
}

// inputErr returns the validation error of in, if it is a *Checked
func inputErr(in vector.Input) error {
	if c, ok := in.(*Checked); ok {
		return c.Err()
	}
	return nil
}
