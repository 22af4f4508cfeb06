package classifier

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
)

const (
	// DefaultBatchSize is the default number of descriptors whose vectors are fetched together
	DefaultBatchSize = 100
)

// Config holds configuration for the Classifier
type Config struct {
	// TypeName keys the classification results this classifier produces. If
	// empty, uses the routine's Name, or its Go type name.
	TypeName string

	// Factory creates result handles. If nil, uses in-memory results.
	Factory ResultFactory

	// Fetcher retrieves descriptor vectors in bulk. If nil, uses descriptor.GetManyVectors.
	Fetcher descriptor.Fetcher

	// BatchSize is the default descriptor batch size. If 0, uses DefaultBatchSize.
	BatchSize int

	// Logger receives per-batch debug logs. If nil, logging is disabled.
	Logger *zerolog.Logger
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults(routine ArrayClassifier) {
	if c.TypeName == "" {
		c.TypeName = routineName(routine)
	}

	if c.Factory == nil {
		c.Factory = classification.DefaultFactory()
	}

	if c.Fetcher == nil {
		c.Fetcher = descriptor.FetcherFunc(descriptor.GetManyVectors)
	}

	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

func routineName(routine ArrayClassifier) string {
	if n, ok := routine.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	name := fmt.Sprintf("%T", routine)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Option adjusts a single ClassifyElements call
type Option func(*elementOptions)

type elementOptions struct {
	overwrite bool
	batchSize int
}

// WithOverwrite classifies every descriptor, even those whose result already
// holds a classification
func WithOverwrite(overwrite bool) Option {
	return func(o *elementOptions) {
		o.overwrite = overwrite
	}
}

// WithBatchSize sets how many descriptors share one bulk vector fetch
func WithBatchSize(n int) Option {
	return func(o *elementOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
