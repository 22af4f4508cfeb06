package vector

import (
	"fmt"
	"iter"
)

// Matrix is a bulk 2-dimensional array. Every row has the same length, so a
// Matrix never needs per-row dimension checks.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// NewMatrix builds a matrix from rows, which must all share one length
func NewMatrix(rows [][]float64) (*Matrix, error) {
	m := &Matrix{rows: len(rows)}
	if len(rows) == 0 {
		return m, nil
	}

	m.cols = len(rows[0])
	m.data = make([]float64, 0, m.rows*m.cols)
	for i, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("row %d has length %d, expected %d", i, len(row), m.cols)
		}
		m.data = append(m.data, row...)
	}

	return m, nil
}

// Rows returns the number of rows
func (m *Matrix) Rows() int {
	return m.rows
}

// Cols returns the row length
func (m *Matrix) Cols() int {
	return m.cols
}

// Row returns row i as a 1-dimensional array
func (m *Matrix) Row(i int) Array {
	return New(m.data[i*m.cols : (i+1)*m.cols]...)
}

// Vectors implements Input, yielding each row in order
func (m *Matrix) Vectors() iter.Seq[Array] {
	return func(yield func(Array) bool) {
		for i := 0; i < m.rows; i++ {
			if !yield(m.Row(i)) {
				return
			}
		}
	}
}
