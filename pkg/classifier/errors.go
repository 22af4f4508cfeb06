package classifier

import "errors"

var (
	// ErrNotOneDimensional is returned for an input vector with more than one axis
	ErrNotOneDimensional = errors.New("Input vector had more than one dimension")

	// ErrInconsistentDimension is returned for an input vector whose length differs from the first
	ErrInconsistentDimension = errors.New("Input vector violated dimension consistency")

	// ErrConsumed is returned when a validated input is iterated a second time
	ErrConsumed = errors.New("validated input already consumed")

	// ErrNoVector is returned for a descriptor that needs classifying but has no stored vector
	ErrNoVector = errors.New("no vector stored")

	// ErrUnderProduced is returned when the routine yields fewer classifications than inputs
	ErrUnderProduced = errors.New("classification routine under-produced classifications relative to the number of descriptors input")

	// ErrOverProduced is returned when the routine yields more classifications than inputs
	ErrOverProduced = errors.New("classification routine over-produced classifications relative to the number of descriptors input")
)
