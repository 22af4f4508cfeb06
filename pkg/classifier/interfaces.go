package classifier

import (
	"context"
	"iter"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// ArrayClassifier is a classification routine over 1-dimensional vectors.
//
// ClassifyArrays must yield exactly one map per input vector, in input
// order. It may consume input ahead of what it yields, and may run
// finalization after yielding its last map.
type ArrayClassifier interface {
	Labels() []classification.Label
	ClassifyArrays(ctx context.Context, vectors iter.Seq[vector.Array]) iter.Seq2[*classification.Map, error]
}

// ResultFactory creates classification result handles
type ResultFactory interface {
	NewClassification(typeName, uid string) (classification.Element, error)
}

// Named is implemented by routines that report their own type name
type Named interface {
	Name() string
}
