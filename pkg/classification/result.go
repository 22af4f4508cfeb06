package classification

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
)

// Element is the capability set of a classification result handle.
type Element interface {
	TypeName() string
	UID() string
	HasClassifications() bool
	GetClassification() (*Map, error)
	SetClassification(m *Map, kv ...Pair) (*Map, error)
}

// Identity is the (type name, uid) pair a result is bound to
type Identity struct {
	TypeName string
	UID      string
}

// Hash returns a hash of the identity
func (id Identity) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(id.TypeName))
	h.Write([]byte{0})
	h.Write([]byte(id.UID))
	return h.Sum64()
}

// Backend stores classification maps keyed by identity.
type Backend interface {
	// Get returns the stored map, or ErrNoClassification when nothing is stored
	Get(id Identity) (*Map, error)
	Set(id Identity, m *Map) error
	Has(id Identity) (bool, error)
}

// Deleter is implemented by backends that can remove a stored classification
type Deleter interface {
	Delete(id Identity) error
}

// Counter is implemented by backends that can count stored classifications
type Counter interface {
	Count() (int, error)
}

// State is the portable state of a Result. The classification payload is not
// part of it and is recovered from the backend.
type State struct {
	TypeName string `json:"type_name"`
	UID      string `json:"uuid"`
}

// Result is a classification result bound to an identity and a storage backend.
// A Result without a backend, such as one restored from its portable state,
// keeps its classifications in memory.
type Result struct {
	id      Identity
	backend Backend
}

// NewResult binds an identity to a backend
func NewResult(typeName, uid string, backend Backend) *Result {
	return &Result{
		id:      Identity{TypeName: typeName, UID: uid},
		backend: backend,
	}
}

// TypeName returns the bound type name
func (r *Result) TypeName() string {
	return r.id.TypeName
}

// UID returns the bound uid
func (r *Result) UID() string {
	return r.id.UID
}

// Identity returns the (type name, uid) pair
func (r *Result) Identity() Identity {
	return r.id
}

// Hash depends on the identity only, never on the classification payload
func (r *Result) Hash() uint64 {
	return r.id.Hash()
}

// GetClassification returns the stored map. An empty stored map is reported
// as ErrNoClassification.
func (r *Result) GetClassification() (*Map, error) {
	m, err := r.store().Get(r.id)
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		return nil, ErrNoClassification
	}
	return m, nil
}

// SetClassification stores the union of m and kv, kv applied last
func (r *Result) SetClassification(m *Map, kv ...Pair) (*Map, error) {
	merged, err := Merge(m, kv...)
	if err != nil {
		return nil, err
	}
	if err := r.store().Set(r.id, merged); err != nil {
		return nil, fmt.Errorf("failed to store classification for %s/%s: %w", r.id.TypeName, r.id.UID, err)
	}
	return merged, nil
}

// HasClassifications reports whether a non-empty map is retrievable. Backend
// failures count as no classification; GetClassification surfaces them.
func (r *Result) HasClassifications() bool {
	ok, err := r.store().Has(r.id)
	return err == nil && ok
}

// MaxLabel returns the label with the greatest confidence
func (r *Result) MaxLabel() (Label, error) {
	return MaxLabel(r)
}

// Confidence looks up the confidence of a single label
func (r *Result) Confidence(label Label) (float64, error) {
	return Confidence(r, label)
}

// Equal compares classification content. Two elements without a
// classification are equal; one without a classification never equals one
// with.
func (r *Result) Equal(other Element) bool {
	return Equal(r, other)
}

// State captures the portable identity
func (r *Result) State() State {
	return State{TypeName: r.id.TypeName, UID: r.id.UID}
}

// Restore rebinds the result to the identity in s. A bound backend is kept.
func (r *Result) Restore(s State) {
	r.id = Identity{TypeName: s.TypeName, UID: s.UID}
	r.store()
}

func (r *Result) store() Backend {
	if r.backend == nil {
		r.backend = NewMemoryBackend()
	}
	return r.backend
}

// MarshalJSON encodes the portable state
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.State())
}

// UnmarshalJSON restores the portable state
func (r *Result) UnmarshalJSON(data []byte) error {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	r.Restore(s)
	return nil
}

func (r *Result) String() string {
	return fmt.Sprintf("Result{type=%q, uid=%q}", r.id.TypeName, r.id.UID)
}

// Merge unions m and kv into a new map. An empty union is ErrNoLabels.
func Merge(m *Map, kv ...Pair) (*Map, error) {
	merged := merge(m, kv)
	if merged.Len() == 0 {
		return nil, ErrNoLabels
	}
	return merged, nil
}

// MaxLabel returns the label of e with the greatest confidence
func MaxLabel(e Element) (Label, error) {
	m, err := e.GetClassification()
	if err != nil {
		return "", err
	}
	label, ok := m.Max()
	if !ok {
		return "", ErrNoClassification
	}
	return label, nil
}

// Confidence returns the confidence e assigns to label
func Confidence(e Element, label Label) (float64, error) {
	m, err := e.GetClassification()
	if err != nil {
		return 0, err
	}
	c, ok := m.Get(label)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
	}
	return c, nil
}

// Equal compares the classification content of two elements
func Equal(a, b Element) bool {
	am, aErr := a.GetClassification()
	bm, bErr := b.GetClassification()

	aAbsent := errors.Is(aErr, ErrNoClassification)
	bAbsent := errors.Is(bErr, ErrNoClassification)
	if aAbsent && bAbsent {
		return true
	}
	if aErr != nil || bErr != nil {
		return false
	}
	return am.Equal(bm)
}
