// Package descriptor defines descriptor elements, the addressable handles
// wrapping feature vectors, and bulk retrieval of their vectors.
package descriptor

import (
	"context"
	"fmt"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// Element is a handle on a stored descriptor vector
type Element interface {
	TypeName() string
	UID() string
	// Vector returns the stored vector, or nil when none is stored
	Vector(ctx context.Context) (*vector.Array, error)
}

// Source retrieves the vectors of many elements in one call. The result has
// one entry per element in the same order; missing vectors are nil.
type Source interface {
	GetManyVectors(ctx context.Context, elems []Element) ([]*vector.Array, error)
}

// Sourced is implemented by elements backed by a bulk Source
type Sourced interface {
	VectorSource() Source
}

// Fetcher is the bulk vector retrieval used by the classification pipeline
type Fetcher interface {
	GetManyVectors(ctx context.Context, elems []Element) ([]*vector.Array, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, elems []Element) ([]*vector.Array, error)

// GetManyVectors implements Fetcher
func (f FetcherFunc) GetManyVectors(ctx context.Context, elems []Element) ([]*vector.Array, error) {
	return f(ctx, elems)
}

// GetManyVectors returns the vectors of elems in order. Elements sharing a
// Source are fetched together in one call; others are read individually.
func GetManyVectors(ctx context.Context, elems []Element) ([]*vector.Array, error) {
	out := make([]*vector.Array, len(elems))

	type group struct {
		source  Source
		indices []int
		elems   []Element
	}
	var groups []*group
	bySource := make(map[Source]*group)

	for i, e := range elems {
		s, ok := e.(Sourced)
		if !ok || s.VectorSource() == nil {
			v, err := e.Vector(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get vector for %s/%s: %w", e.TypeName(), e.UID(), err)
			}
			out[i] = v
			continue
		}

		src := s.VectorSource()
		g, ok := bySource[src]
		if !ok {
			g = &group{source: src}
			bySource[src] = g
			groups = append(groups, g)
		}
		g.indices = append(g.indices, i)
		g.elems = append(g.elems, e)
	}

	for _, g := range groups {
		vectors, err := g.source.GetManyVectors(ctx, g.elems)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(g.elems) {
			return nil, fmt.Errorf("vector source returned %d vectors for %d elements", len(vectors), len(g.elems))
		}
		for j, idx := range g.indices {
			out[idx] = vectors[j]
		}
	}

	return out, nil
}
