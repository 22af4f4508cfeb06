package testutil

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// MockElement is a mock classification element that records calls
type MockElement struct {
	Type string
	ID   string

	// HasClassificationsFunc overrides HasClassifications. Defaults to Has.
	HasClassificationsFunc func() bool
	// GetClassificationFunc overrides GetClassification. Defaults to the last set map.
	GetClassificationFunc func() (*classification.Map, error)
	Has                   bool

	mu       sync.Mutex
	HasCalls int
	SetCalls []*classification.Map
	stored   *classification.Map
}

func (m *MockElement) TypeName() string { return m.Type }

func (m *MockElement) UID() string { return m.ID }

func (m *MockElement) HasClassifications() bool {
	m.mu.Lock()
	m.HasCalls++
	m.mu.Unlock()

	if m.HasClassificationsFunc != nil {
		return m.HasClassificationsFunc()
	}
	return m.Has
}

func (m *MockElement) GetClassification() (*classification.Map, error) {
	if m.GetClassificationFunc != nil {
		return m.GetClassificationFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil, classification.ErrNoClassification
	}
	return m.stored, nil
}

func (m *MockElement) SetClassification(cm *classification.Map, kv ...classification.Pair) (*classification.Map, error) {
	merged, err := classification.Merge(cm, kv...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = append(m.SetCalls, merged)
	m.stored = merged
	return merged, nil
}

// SetCount returns how many times SetClassification succeeded
func (m *MockElement) SetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SetCalls)
}

// MockFactory is a mock result factory
type MockFactory struct {
	NewClassificationFunc func(typeName, uid string) (classification.Element, error)

	mu        sync.Mutex
	CallCount int
	Elements  map[string]*MockElement
	// DefaultHas seeds the Has field of elements created by the default behaviour
	DefaultHas bool
}

func (f *MockFactory) NewClassification(typeName, uid string) (classification.Element, error) {
	f.mu.Lock()
	f.CallCount++
	f.mu.Unlock()

	if f.NewClassificationFunc != nil {
		return f.NewClassificationFunc(typeName, uid)
	}

	// Default: one element per uid, reused across calls
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Elements == nil {
		f.Elements = make(map[string]*MockElement)
	}
	e, ok := f.Elements[uid]
	if !ok {
		e = &MockElement{Type: typeName, ID: uid, Has: f.DefaultHas}
		f.Elements[uid] = e
	}
	return e, nil
}

// CountingFetcher wraps a descriptor fetcher and records every call
type CountingFetcher struct {
	Fetcher descriptor.Fetcher

	mu    sync.Mutex
	Calls [][]descriptor.Element
}

func (c *CountingFetcher) GetManyVectors(ctx context.Context, elems []descriptor.Element) ([]*vector.Array, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, slices.Clone(elems))
	c.mu.Unlock()

	f := c.Fetcher
	if f == nil {
		f = descriptor.FetcherFunc(descriptor.GetManyVectors)
	}
	return f.GetManyVectors(ctx, elems)
}

// CallCount returns the number of bulk fetches
func (c *CountingFetcher) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// DummyClassifier is a deterministic classification routine. Each vector is
// classified as {"test": v[0]}.
type DummyClassifier struct {
	// Extra is the number of additional maps yielded after the input is exhausted
	Extra int
	// Drop is the number of trailing inputs left unclassified
	Drop int

	mu             sync.Mutex
	Finalized      int
	Invocations    int
	ConsumedInputs int
}

func (d *DummyClassifier) Name() string { return "DummyClassifier" }

func (d *DummyClassifier) Labels() []classification.Label {
	return []classification.Label{"constant"}
}

func (d *DummyClassifier) ClassifyArrays(ctx context.Context, vectors iter.Seq[vector.Array]) iter.Seq2[*classification.Map, error] {
	return func(yield func(*classification.Map, error) bool) {
		d.mu.Lock()
		d.Invocations++
		d.mu.Unlock()

		if d.Drop > 0 {
			// Buffer everything so the trailing inputs can be dropped
			all := slices.Collect(vectors)
			d.consumed(len(all))
			keep := max(len(all)-d.Drop, 0)
			for i := 0; i < keep; i++ {
				if !yield(classification.NewMap(classification.Pair{Label: "test", Confidence: float64(i)}), nil) {
					return
				}
			}
			d.finalize()
			return
		}

		i := 0
		for v := range vectors {
			d.consumed(1)
			if !yield(classification.NewMap(classification.Pair{Label: "test", Confidence: v.At(0)}), nil) {
				return
			}
			i++
		}
		for j := 0; j < d.Extra; j++ {
			if !yield(classification.NewMap(classification.Pair{Label: "test", Confidence: float64(i + j)}), nil) {
				return
			}
		}
		d.finalize()
	}
}

func (d *DummyClassifier) consumed(n int) {
	d.mu.Lock()
	d.ConsumedInputs += n
	d.mu.Unlock()
}

func (d *DummyClassifier) finalize() {
	d.mu.Lock()
	d.Finalized++
	d.mu.Unlock()
}

// FailingClassifier yields Err after Before successful classifications
type FailingClassifier struct {
	Before int
	Err    error
}

func (f *FailingClassifier) Labels() []classification.Label { return nil }

func (f *FailingClassifier) ClassifyArrays(ctx context.Context, vectors iter.Seq[vector.Array]) iter.Seq2[*classification.Map, error] {
	return func(yield func(*classification.Map, error) bool) {
		i := 0
		for range vectors {
			if i == f.Before {
				yield(nil, f.Err)
				return
			}
			if !yield(classification.NewMap(classification.Pair{Label: fmt.Sprint(i), Confidence: 1}), nil) {
				return
			}
			i++
		}
	}
}
