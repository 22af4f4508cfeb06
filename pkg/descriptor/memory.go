package descriptor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// MemoryElement keeps its vector in process memory
type MemoryElement struct {
	typeName string
	uid      string

	mu  sync.RWMutex
	vec *vector.Array
}

// NewMemoryElement creates an element without a stored vector
func NewMemoryElement(typeName, uid string) *MemoryElement {
	return &MemoryElement{typeName: typeName, uid: uid}
}

// FromVectors creates one element per vector, each with a random uid
func FromVectors(typeName string, vectors ...vector.Array) []*MemoryElement {
	out := make([]*MemoryElement, len(vectors))
	for i, v := range vectors {
		out[i] = NewMemoryElement(typeName, uuid.NewString()).SetVector(v)
	}
	return out
}

// Elements converts memory elements to the Element interface
func Elements[E Element](elems []E) []Element {
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out
}

// TypeName implements Element
func (e *MemoryElement) TypeName() string {
	return e.typeName
}

// UID implements Element
func (e *MemoryElement) UID() string {
	return e.uid
}

// Vector implements Element
func (e *MemoryElement) Vector(ctx context.Context) (*vector.Array, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vec, nil
}

// HasVector reports whether a vector is stored
func (e *MemoryElement) HasVector() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vec != nil
}

// SetVector stores v and returns the element for chaining
func (e *MemoryElement) SetVector(v vector.Array) *MemoryElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vec = &v
	return e
}

func (e *MemoryElement) String() string {
	return fmt.Sprintf("MemoryElement{type=%q, uid=%q}", e.typeName, e.uid)
}
