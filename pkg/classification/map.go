package classification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Label identifies a classification category
type Label = string

// Pair is a single label and its confidence
type Pair struct {
	Label      Label
	Confidence float64
}

// Map is a label to confidence mapping that remembers label insertion order.
// Confidences are not required to sum to 1.
type Map struct {
	order []Label
	conf  map[Label]float64
}

// NewMap creates a map from the given pairs. A repeated label keeps its first
// position and its last confidence.
func NewMap(pairs ...Pair) *Map {
	m := &Map{conf: make(map[Label]float64, len(pairs))}
	for _, p := range pairs {
		m.Set(p.Label, p.Confidence)
	}
	return m
}

// Set assigns a confidence to a label
func (m *Map) Set(label Label, confidence float64) {
	if m.conf == nil {
		m.conf = make(map[Label]float64)
	}
	if _, ok := m.conf[label]; !ok {
		m.order = append(m.order, label)
	}
	m.conf[label] = confidence
}

// Get returns the confidence for label
func (m *Map) Get(label Label) (float64, bool) {
	if m == nil {
		return 0, false
	}
	c, ok := m.conf[label]
	return c, ok
}

// Len returns the number of labels
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Labels returns the labels in insertion order
func (m *Map) Labels() []Label {
	if m == nil {
		return nil
	}
	return slices.Clone(m.order)
}

// All iterates labels and confidences in insertion order
func (m *Map) All() iter.Seq2[Label, float64] {
	return func(yield func(Label, float64) bool) {
		if m == nil {
			return
		}
		for _, label := range m.order {
			if !yield(label, m.conf[label]) {
				return
			}
		}
	}
}

// Pairs returns the entries in insertion order
func (m *Map) Pairs() []Pair {
	pairs := make([]Pair, 0, m.Len())
	for label, c := range m.All() {
		pairs = append(pairs, Pair{Label: label, Confidence: c})
	}
	return pairs
}

// Clone returns an independent copy
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	return NewMap(m.Pairs()...)
}

// Equal compares content only; label order is ignored
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for label, c := range m.All() {
		oc, ok := other.Get(label)
		if !ok || oc != c {
			return false
		}
	}
	return true
}

// Max returns the label with the greatest confidence. The first label seen
// with the maximum value wins ties.
func (m *Map) Max() (Label, bool) {
	var (
		best  Label
		bestC float64
		found bool
	)
	for label, c := range m.All() {
		if !found || c > bestC {
			best, bestC, found = label, c, true
		}
	}
	return best, found
}

func (m *Map) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.Pairs() {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q: %g", p.Label, p.Confidence)
	}
	buf.WriteByte('}')
	return buf.String()
}

// MarshalJSON encodes the map as a JSON object, keeping label order
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.Pairs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Confidence)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", p.Label, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("classification map must be a JSON object")
	}

	out := NewMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}

		var c float64
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("label %q: %w", label, err)
		}
		out.Set(label, c)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = *out
	return nil
}

// merge unions m and kv into a new map; entries from kv are applied last
func merge(m *Map, kv []Pair) *Map {
	out := m.Clone()
	if out == nil {
		out = NewMap()
	}
	for _, p := range kv {
		out.Set(p.Label, p.Confidence)
	}
	return out
}
