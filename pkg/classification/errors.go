package classification

import "errors"

var (
	// ErrNoClassification is returned when reading a classification that was never set
	ErrNoClassification = errors.New("no classification set")

	// ErrNoLabels is returned when setting an empty classification
	ErrNoLabels = errors.New("No classification labels/values given.")

	// ErrLabelNotFound is returned when looking up a label absent from a classification
	ErrLabelNotFound = errors.New("label not found in classification")

	// ErrUnknownImplementation is returned for an implementation name that was never registered
	ErrUnknownImplementation = errors.New("unknown classification implementation")

	// ErrUnsupported is returned when a backend lacks an optional capability
	ErrUnsupported = errors.New("operation not supported by backend")
)
