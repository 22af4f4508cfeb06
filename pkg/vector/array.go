package vector

import (
	"fmt"
	"iter"
	"slices"
)

// Array is a dense n-dimensional array of float64 values stored in row-major order.
type Array struct {
	shape []int
	data  []float64
}

// New creates a 1-dimensional array holding the given values
func New(values ...float64) Array {
	data := slices.Clone(values)
	return Array{shape: []int{len(data)}, data: data}
}

// FromFloat32 creates a 1-dimensional array from float32 values, as returned by vector databases
func FromFloat32(values []float32) Array {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return Array{shape: []int{len(data)}, data: data}
}

// Reshape creates an array with the given shape. The product of shape must match len(data).
func Reshape(shape []int, data []float64) (Array, error) {
	if len(shape) == 0 {
		return Array{}, fmt.Errorf("shape must have at least one axis")
	}

	size := 1
	for _, n := range shape {
		if n < 0 {
			return Array{}, fmt.Errorf("negative axis length in shape %v", shape)
		}
		size *= n
	}
	if size != len(data) {
		return Array{}, fmt.Errorf("cannot reshape %d values into shape %v", len(data), shape)
	}

	return Array{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// Ndim returns the number of axes
func (a Array) Ndim() int {
	return len(a.shape)
}

// Len returns the length of the first axis, 0 for a zero-value array
func (a Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// Shape returns a copy of the array shape
func (a Array) Shape() []int {
	return slices.Clone(a.shape)
}

// Values returns a copy of the flattened values
func (a Array) Values() []float64 {
	return slices.Clone(a.data)
}

// At returns the i-th flattened value
func (a Array) At(i int) float64 {
	return a.data[i]
}

// Float32 returns the flattened values narrowed to float32
func (a Array) Float32() []float32 {
	out := make([]float32, len(a.data))
	for i, v := range a.data {
		out[i] = float32(v)
	}
	return out
}

// Equal reports whether both arrays have the same shape and values
func (a Array) Equal(b Array) bool {
	return slices.Equal(a.shape, b.shape) && slices.Equal(a.data, b.data)
}

func (a Array) String() string {
	if a.Ndim() == 1 {
		return fmt.Sprint(a.data)
	}
	return fmt.Sprintf("array(shape=%v)", a.shape)
}

// Input is a source of vectors to classify.
type Input interface {
	Vectors() iter.Seq[Array]
}

// List is an Input over an in-memory slice of arrays.
type List []Array

// Vectors implements Input
func (l List) Vectors() iter.Seq[Array] {
	return slices.Values(l)
}

// Seq adapts an iterator to Input.
type Seq iter.Seq[Array]

// Vectors implements Input
func (s Seq) Vectors() iter.Seq[Array] {
	return iter.Seq[Array](s)
}
