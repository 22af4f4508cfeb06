package classifier

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// Classifier runs a classification routine over raw vectors or descriptor
// elements, storing results through a result factory.
type Classifier struct {
	routine   ArrayClassifier
	typeName  string
	factory   ResultFactory
	fetcher   descriptor.Fetcher
	batchSize int
	log       zerolog.Logger

	// Metrics tracking
	metrics     Metrics
	metricsLock sync.RWMutex
}

// New creates a Classifier around routine
func New(routine ArrayClassifier, cfg Config) (*Classifier, error) {
	if routine == nil {
		return nil, fmt.Errorf("classification routine is required")
	}
	cfg.applyDefaults(routine)

	return &Classifier{
		routine:   routine,
		typeName:  cfg.TypeName,
		factory:   cfg.Factory,
		fetcher:   cfg.Fetcher,
		batchSize: cfg.BatchSize,
		log:       cfg.Logger.With().Str("classifier", cfg.TypeName).Logger(),
	}, nil
}

// TypeName returns the type name results are keyed by
func (c *Classifier) TypeName() string {
	return c.typeName
}

// GetLabels returns the routine's output vocabulary
func (c *Classifier) GetLabels() []classification.Label {
	return c.routine.Labels()
}

// ClassifyArrays classifies each vector of in, in order. Dimension checks run
// in front of the routine as vectors are consumed.
func (c *Classifier) ClassifyArrays(ctx context.Context, in vector.Input) iter.Seq2[*classification.Map, error] {
	return func(yield func(*classification.Map, error) bool) {
		checked := ValidateDimensions(in)

		for m, err := range c.routine.ClassifyArrays(ctx, checked.Vectors()) {
			if verr := inputErr(checked); verr != nil {
				yield(nil, verr)
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("classification routine failed: %w", err))
				return
			}
			if !yield(m, nil) {
				return
			}
		}

		if verr := inputErr(checked); verr != nil {
			yield(nil, verr)
		}
	}
}

// ClassifyElements yields one classification result per descriptor, in input
// order. Results that already hold a classification are left alone unless
// WithOverwrite is given. Vectors are fetched one batch of descriptors at a
// time and all descriptors needing classification go through a single
// invocation of the routine.
func (c *Classifier) ClassifyElements(ctx context.Context, elems iter.Seq[descriptor.Element], opts ...Option) iter.Seq2[classification.Element, error] {
	o := elementOptions{batchSize: c.batchSize}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(classification.Element, error) bool) {
		p := newPlanner(ctx, c, elems, o)
		defer p.close()

		checked := ValidateDimensions(vector.Seq(p.vectors()))
		nextMap, stop := iter.Pull2(c.routine.ClassifyArrays(ctx, checked.Vectors()))
		defer stop()

		// pull returns the routine's next map. Failures feeding the routine
		// take precedence over whatever the routine made of its cut-short input.
		pull := func() (*classification.Map, bool, error) {
			m, err, ok := nextMap()
			if p.err != nil {
				return nil, false, p.err
			}
			if verr := inputErr(checked); verr != nil {
				return nil, false, verr
			}
			if !ok {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, fmt.Errorf("classification routine failed: %w", err)
			}
			return m, true, nil
		}

		for {
			if len(p.pending) == 0 {
				if !p.advance() {
					if p.err != nil {
						yield(nil, p.err)
						return
					}
					break
				}
				continue
			}

			rec := p.pending[0]
			p.pending = p.pending[1:]

			if rec.needs {
				m, ok, err := pull()
				if err != nil {
					yield(nil, err)
					return
				}
				if !ok {
					yield(nil, ErrUnderProduced)
					return
				}
				if _, err := rec.elem.SetClassification(m); err != nil {
					yield(nil, fmt.Errorf("failed to set classification for %s: %w", rec.elem.UID(), err))
					return
				}
				c.recordClassified()
			} else {
				c.recordSkipped()
			}

			if !yield(rec.elem, nil) {
				return
			}
		}

		// One lookahead past the expected count reveals over-production and
		// lets the routine run its finalization.
		_, ok, err := pull()
		if err != nil {
			yield(nil, err)
			return
		}
		if ok {
			yield(nil, ErrOverProduced)
		}
	}
}

// ClassifyOne classifies a single descriptor
func (c *Classifier) ClassifyOne(ctx context.Context, elem descriptor.Element, overwrite bool) (classification.Element, error) {
	var out classification.Element
	for e, err := range c.ClassifyElements(ctx, func(yield func(descriptor.Element) bool) { yield(elem) }, WithOverwrite(overwrite)) {
		if err != nil {
			return nil, err
		}
		out = e
	}
	return out, nil
}

// record pairs a result handle with whether it needs classifying
type record struct {
	elem  classification.Element
	needs bool
}

// planner pulls descriptors a batch at a time. Both the output side
// (pending records) and the routine's input side (queued vectors) advance it
// on demand, so the routine may read ahead of the results handed out.
type planner struct {
	ctx       context.Context
	c         *Classifier
	overwrite bool
	batchSize int

	next func() (descriptor.Element, bool)
	stop func()

	pending []record
	queued  []vector.Array
	done    bool
	err     error
	batches int
}

func newPlanner(ctx context.Context, c *Classifier, elems iter.Seq[descriptor.Element], o elementOptions) *planner {
	next, stop := iter.Pull(elems)
	return &planner{
		ctx:       ctx,
		c:         c,
		overwrite: o.overwrite,
		batchSize: o.batchSize,
		next:      next,
		stop:      stop,
	}
}

func (p *planner) close() {
	p.stop()
}

// advance processes the next batch of descriptors. It returns false once the
// input is exhausted or a failure was recorded in p.err.
func (p *planner) advance() bool {
	if p.done || p.err != nil {
		return false
	}
	if err := p.ctx.Err(); err != nil {
		p.err = err
		return false
	}

	batch := make([]descriptor.Element, 0, p.batchSize)
	for len(batch) < p.batchSize {
		d, ok := p.next()
		if !ok {
			p.done = true
			break
		}
		batch = append(batch, d)
	}
	if len(batch) == 0 {
		return false
	}

	records := make([]record, len(batch))
	for i, d := range batch {
		ce, err := p.c.factory.NewClassification(p.c.typeName, d.UID())
		if err != nil {
			p.err = fmt.Errorf("failed to create classification for %s: %w", d.UID(), err)
			return false
		}
		records[i] = record{elem: ce, needs: p.overwrite || !ce.HasClassifications()}
	}

	vectors, err := p.c.fetcher.GetManyVectors(p.ctx, batch)
	p.c.recordFetch()
	if err != nil {
		p.err = fmt.Errorf("failed to fetch descriptor vectors: %w", err)
		return false
	}
	if len(vectors) != len(batch) {
		p.err = fmt.Errorf("vector fetch returned %d vectors for %d descriptors", len(vectors), len(batch))
		return false
	}

	var toCompute []vector.Array
	for i, rec := range records {
		if !rec.needs {
			continue
		}
		if vectors[i] == nil {
			p.err = fmt.Errorf("%s/%s has %w", batch[i].TypeName(), batch[i].UID(), ErrNoVector)
			return false
		}
		toCompute = append(toCompute, *vectors[i])
	}

	p.batches++
	p.c.log.Debug().
		Int("batch", p.batches).
		Int("size", len(batch)).
		Int("to_compute", len(toCompute)).
		Bool("overwrite", p.overwrite).
		Msg("prepared descriptor batch")

	p.pending = append(p.pending, records...)
	p.queued = append(p.queued, toCompute...)
	return true
}

// vectors feeds queued vectors to the routine, advancing batches as needed
func (p *planner) vectors() iter.Seq[vector.Array] {
	return func(yield func(vector.Array) bool) {
		for {
			for len(p.queued) == 0 {
				if !p.advance() {
					return
				}
			}
			v := p.queued[0]
			p.queued = p.queued[1:]
			if !yield(v) {
				return
			}
		}
	}
}
