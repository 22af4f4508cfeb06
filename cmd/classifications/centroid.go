package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// centroidClassifier scores each vector against labelled reference vectors.
// The confidence of a label is the cosine similarity rescaled to [0, 1].
type centroidClassifier struct {
	labels    []classification.Label
	centroids []vector.Array
}

// loadCentroids reads a CSV file of label,v1,v2,... rows. A header row is
// skipped when its second column is not a number.
func loadCentroids(path string) (*centroidClassifier, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open centroids file: %w", err)
	}
	defer file.Close()

	return parseCentroids(file)
}

func parseCentroids(r io.Reader) (*centroidClassifier, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	c := &centroidClassifier{}
	dim := -1
	for i, record := range records {
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: expected a label and at least one value", i+1)
		}
		if i == 0 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64); err != nil {
				continue
			}
		}

		values := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if values[j], err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
				return nil, fmt.Errorf("row %d: invalid value %q: %w", i+1, field, err)
			}
		}
		if dim >= 0 && len(values) != dim {
			return nil, fmt.Errorf("row %d: expected %d values, got %d", i+1, dim, len(values))
		}
		dim = len(values)

		c.labels = append(c.labels, strings.TrimSpace(record[0]))
		c.centroids = append(c.centroids, vector.New(values...))
	}

	if len(c.labels) == 0 {
		return nil, fmt.Errorf("centroids file has no rows")
	}
	return c, nil
}

func (c *centroidClassifier) Name() string {
	return "Centroid"
}

func (c *centroidClassifier) Labels() []classification.Label {
	return c.labels
}

func (c *centroidClassifier) ClassifyArrays(ctx context.Context, vectors iter.Seq[vector.Array]) iter.Seq2[*classification.Map, error] {
	return func(yield func(*classification.Map, error) bool) {
		for v := range vectors {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if v.Len() != c.centroids[0].Len() {
				yield(nil, fmt.Errorf("vector has %d values, centroids have %d", v.Len(), c.centroids[0].Len()))
				return
			}

			m := classification.NewMap()
			for i, centroid := range c.centroids {
				m.Set(c.labels[i], (cosine(v, centroid)+1)/2)
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

func cosine(a, b vector.Array) float64 {
	var dot, na, nb float64
	for i := 0; i < a.Len(); i++ {
		x, y := a.At(i), b.At(i)
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}
