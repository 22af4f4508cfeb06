package classifier_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/classifier"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/testutil"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

const descriptorType = "DescriptorElement"

func newClassifier(t *testing.T, routine classifier.ArrayClassifier, cfg classifier.Config) *classifier.Classifier {
	t.Helper()
	clf, err := classifier.New(routine, cfg)
	require.NoError(t, err)
	return clf
}

// sequential builds n elements whose vectors are [i, i+1, i+2]
func sequential(n int) []descriptor.Element {
	vectors := make([]vector.Array, n)
	for i := range vectors {
		f := float64(i)
		vectors[i] = vector.New(f, f+1, f+2)
	}
	return descriptor.Elements(descriptor.FromVectors(descriptorType, vectors...))
}

func collectMaps(seq iter.Seq2[*classification.Map, error]) ([]*classification.Map, error) {
	var out []*classification.Map
	for m, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func collectElements(seq iter.Seq2[classification.Element, error]) ([]classification.Element, error) {
	var out []classification.Element
	for e, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func confidence(t *testing.T, e classification.Element) float64 {
	t.Helper()
	c, err := classification.Confidence(e, "test")
	require.NoError(t, err, "confidence of %s", e.UID())
	return c
}

// TestNew_RequiresRoutine tests that a nil routine is rejected
func TestNew_RequiresRoutine(t *testing.T) {
	_, err := classifier.New(nil, classifier.Config{})
	assert.Error(t, err)
}

// TestNew_TypeNameDefaults tests how the result type name is derived
func TestNew_TypeNameDefaults(t *testing.T) {
	named := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})
	assert.Equal(t, "DummyClassifier", named.TypeName())

	unnamed := newClassifier(t, &testutil.FailingClassifier{}, classifier.Config{})
	assert.Equal(t, "FailingClassifier", unnamed.TypeName())

	explicit := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{TypeName: "Custom"})
	assert.Equal(t, "Custom", explicit.TypeName())
}

// TestClassifier_GetLabels tests that labels come from the routine
func TestClassifier_GetLabels(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})
	assert.Equal(t, []classification.Label{"constant"}, clf.GetLabels())
}

// TestClassifyArrays_Success tests one map per vector, in order, with finalization
func TestClassifyArrays_Success(t *testing.T) {
	routine := &testutil.DummyClassifier{}
	clf := newClassifier(t, routine, classifier.Config{})

	maps, err := collectMaps(clf.ClassifyArrays(context.Background(), vector.List{
		vector.New(1, 2, 3),
		vector.New(4, 5, 6),
		vector.New(7, 8, 9),
	}))
	require.NoError(t, err)

	want := []float64{1, 4, 7}
	require.Len(t, maps, len(want))
	for i, m := range maps {
		c, _ := m.Get("test")
		assert.Equal(t, want[i], c, "map %d", i)
	}
	assert.Equal(t, 1, routine.Finalized)
}

// TestClassifyArrays_Matrix tests that a matrix input is classified row by row
func TestClassifyArrays_Matrix(t *testing.T) {
	m, err := vector.NewMatrix([][]float64{{0.5, 1}, {0.25, 1}})
	require.NoError(t, err)

	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})
	maps, err := collectMaps(clf.ClassifyArrays(context.Background(), m))
	require.NoError(t, err)
	require.Len(t, maps, 2)

	c, _ := maps[1].Get("test")
	assert.Equal(t, 0.25, c)
}

// TestClassifyArrays_Empty tests that an empty input still finalizes the routine
func TestClassifyArrays_Empty(t *testing.T) {
	routine := &testutil.DummyClassifier{}
	clf := newClassifier(t, routine, classifier.Config{})

	maps, err := collectMaps(clf.ClassifyArrays(context.Background(), vector.List{}))
	require.NoError(t, err)
	assert.Empty(t, maps)
	assert.Equal(t, 1, routine.Finalized)
}

// TestClassifyArrays_InconsistentDimensions tests that a length change fails the stream
func TestClassifyArrays_InconsistentDimensions(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})

	maps, err := collectMaps(clf.ClassifyArrays(context.Background(), vector.List{
		vector.New(1, 2, 3),
		vector.New(4, 5, 6),
		vector.New(7, 8, 9, 10),
	}))
	require.ErrorIs(t, err, classifier.ErrInconsistentDimension)
	assert.Len(t, maps, 2)
}

// TestClassifyArrays_RoutineError tests that routine failures are propagated
func TestClassifyArrays_RoutineError(t *testing.T) {
	boom := errors.New("boom")
	clf := newClassifier(t, &testutil.FailingClassifier{Before: 1, Err: boom}, classifier.Config{})

	maps, err := collectMaps(clf.ClassifyArrays(context.Background(), vector.List{vector.New(1), vector.New(2)}))
	require.ErrorIs(t, err, boom)
	assert.Len(t, maps, 1)
}

// TestClassifyElements_Empty tests that empty input yields nothing, fetches nothing and finalizes once
func TestClassifyElements_Empty(t *testing.T) {
	routine := &testutil.DummyClassifier{}
	fetcher := &testutil.CountingFetcher{}
	clf := newClassifier(t, routine, classifier.Config{Fetcher: fetcher})

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values([]descriptor.Element{})))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, fetcher.CallCount())
	assert.Equal(t, 1, routine.Finalized)
}

// TestClassifyElements_Success tests results in input order with stored classifications
func TestClassifyElements_Success(t *testing.T) {
	routine := &testutil.DummyClassifier{}
	clf := newClassifier(t, routine, classifier.Config{})
	elems := sequential(5)

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems)))
	require.NoError(t, err)
	require.Len(t, out, len(elems))

	for i, e := range out {
		assert.Equal(t, elems[i].UID(), e.UID(), "result %d", i)
		assert.Equal(t, "DummyClassifier", e.TypeName(), "result %d", i)
		assert.Equal(t, float64(i), confidence(t, e), "result %d", i)
	}
	assert.Equal(t, 1, routine.Invocations)
	assert.Equal(t, 1, routine.Finalized)
}

// TestClassifyElements_InconsistentDimensions tests that mismatched vector lengths fail the stream
func TestClassifyElements_InconsistentDimensions(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})
	elems := descriptor.Elements(descriptor.FromVectors(descriptorType,
		vector.New(1, 2, 3),
		vector.New(1, 2, 4),
		vector.New(1, 2, 3, 4),
	))

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems)))
	require.ErrorIs(t, err, classifier.ErrInconsistentDimension)
	assert.Len(t, out, 2)
}

// TestClassifyElements_MissingVector tests that a descriptor without a vector fails the stream
func TestClassifyElements_MissingVector(t *testing.T) {
	routine := &testutil.DummyClassifier{}
	clf := newClassifier(t, routine, classifier.Config{})
	elems := []descriptor.Element{
		descriptor.NewMemoryElement(descriptorType, "a").SetVector(vector.New(1, 2)),
		descriptor.NewMemoryElement(descriptorType, "b"),
		descriptor.NewMemoryElement(descriptorType, "c").SetVector(vector.New(3, 4)),
	}

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems)))
	require.ErrorIs(t, err, classifier.ErrNoVector)
	assert.Empty(t, out)
	assert.Zero(t, routine.Invocations, "routine should not run")
	assert.Zero(t, routine.ConsumedInputs, "routine should not consume input")
}

// TestClassifyElements_UnderProduced tests detection of a routine yielding too few maps
func TestClassifyElements_UnderProduced(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{Drop: 1}, classifier.Config{})

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(sequential(3))))
	require.ErrorIs(t, err, classifier.ErrUnderProduced)
	assert.Len(t, out, 2)
}

// TestClassifyElements_OverProduced tests detection of a routine yielding too many maps
func TestClassifyElements_OverProduced(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{Extra: 2}, classifier.Config{})

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(sequential(3))))
	require.ErrorIs(t, err, classifier.ErrOverProduced)
	assert.Len(t, out, 3)
}

// TestClassifyElements_RoutineError tests that routine failures are propagated
func TestClassifyElements_RoutineError(t *testing.T) {
	boom := errors.New("boom")
	clf := newClassifier(t, &testutil.FailingClassifier{Before: 2, Err: boom}, classifier.Config{})

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(sequential(4))))
	require.ErrorIs(t, err, boom)
	assert.Len(t, out, 2)
}

// TestClassifyElements_SkipAndOverwrite tests which results are checked and written
func TestClassifyElements_SkipAndOverwrite(t *testing.T) {
	tests := []struct {
		name         string
		has          bool
		overwrite    bool
		wantHasCalls int
		wantSets     int
	}{
		{name: "empty results are classified", has: false, overwrite: false, wantHasCalls: 1, wantSets: 1},
		{name: "existing results are skipped", has: true, overwrite: false, wantHasCalls: 1, wantSets: 0},
		{name: "overwrite skips the check on empty results", has: false, overwrite: true, wantHasCalls: 0, wantSets: 1},
		{name: "overwrite replaces existing results", has: true, overwrite: true, wantHasCalls: 0, wantSets: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &testutil.MockFactory{DefaultHas: tt.has}
			routine := &testutil.DummyClassifier{}
			clf := newClassifier(t, routine, classifier.Config{Factory: factory})
			elems := sequential(4)

			out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems), classifier.WithOverwrite(tt.overwrite)))
			require.NoError(t, err)
			require.Len(t, out, len(elems))

			for _, d := range elems {
				e := factory.Elements[d.UID()]
				assert.Equal(t, tt.wantHasCalls, e.HasCalls, "%s HasClassifications calls", d.UID())
				assert.Equal(t, tt.wantSets, e.SetCount(), "%s SetClassification calls", d.UID())
			}

			wantConsumed := 0
			if tt.wantSets > 0 {
				wantConsumed = len(elems)
			}
			assert.Equal(t, wantConsumed, routine.ConsumedInputs)
		})
	}
}

// TestClassifyElements_MixedPrecomputed tests that only results without a classification reach the routine
func TestClassifyElements_MixedPrecomputed(t *testing.T) {
	needs := map[int]bool{2: true, 5: true, 6: true}
	factory := &testutil.MockFactory{Elements: map[string]*testutil.MockElement{}}

	elems := make([]descriptor.Element, 8)
	for i := range elems {
		uid := fmt.Sprintf("d%d", i)
		d := descriptor.NewMemoryElement(descriptorType, uid)
		// Skipped descriptors need no vector
		if needs[i] {
			d.SetVector(vector.New(float64(i), 0))
		}
		elems[i] = d
		factory.Elements[uid] = &testutil.MockElement{Type: "DummyClassifier", ID: uid, Has: !needs[i]}
	}

	routine := &testutil.DummyClassifier{}
	clf := newClassifier(t, routine, classifier.Config{Factory: factory})

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems)))
	require.NoError(t, err)
	require.Len(t, out, len(elems))

	for i, e := range out {
		assert.Equal(t, elems[i].UID(), e.UID(), "result %d out of order", i)
		mock := factory.Elements[e.UID()]
		assert.Equal(t, 1, mock.HasCalls, "%s HasClassifications calls", e.UID())
		if !needs[i] {
			assert.Zero(t, mock.SetCount(), "%s should not be written", e.UID())
			continue
		}
		require.Equal(t, 1, mock.SetCount(), "%s writes", e.UID())
		c, _ := mock.SetCalls[0].Get("test")
		assert.Equal(t, float64(i), c, "%s confidence", e.UID())
	}

	assert.Equal(t, len(needs), routine.ConsumedInputs)

	metrics := clf.GetMetrics()
	assert.Equal(t, 3, metrics.Classified)
	assert.Equal(t, 5, metrics.Skipped)
	assert.Equal(t, 1, metrics.VectorFetches)
}

// TestClassifyElements_Batching tests how the batch size splits bulk vector fetches
func TestClassifyElements_Batching(t *testing.T) {
	tests := []struct {
		name      string
		opts      []classifier.Option
		wantSizes []int
	}{
		{name: "default batch size", opts: nil, wantSizes: []int{29}},
		{name: "batch of 20", opts: []classifier.Option{classifier.WithBatchSize(20)}, wantSizes: []int{20, 9}},
		{name: "batch of 1", opts: []classifier.Option{classifier.WithBatchSize(1)}, wantSizes: slices.Repeat([]int{1}, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routine := &testutil.DummyClassifier{}
			fetcher := &testutil.CountingFetcher{}
			clf := newClassifier(t, routine, classifier.Config{Fetcher: fetcher})
			elems := sequential(29)

			out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems), tt.opts...))
			require.NoError(t, err)
			require.Len(t, out, len(elems))

			require.Equal(t, len(tt.wantSizes), fetcher.CallCount())
			for i, call := range fetcher.Calls {
				assert.Len(t, call, tt.wantSizes[i], "fetch %d", i)
			}
			assert.Equal(t, 1, routine.Invocations)
			assert.Equal(t, 1, routine.Finalized)
		})
	}
}

// TestClassifyElements_SharedBackend tests that a durable backend is built once for a whole run
func TestClassifyElements_SharedBackend(t *testing.T) {
	impl := fmt.Sprintf("counting-%d", time.Now().UnixNano())
	built := 0
	require.NoError(t, classification.Register(impl, nil, func(map[string]any) (classification.Backend, error) {
		built++
		return classification.NewMemoryBackend(), nil
	}))

	factory, err := classification.NewFactory(impl, nil)
	require.NoError(t, err)
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{Factory: factory})
	elems := sequential(29)

	out, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems), classifier.WithBatchSize(10)))
	require.NoError(t, err)
	require.Len(t, out, len(elems))
	assert.Equal(t, 1, built)

	// A second run finds every classification stored by the first
	out, err = collectElements(clf.ClassifyElements(context.Background(), slices.Values(elems)))
	require.NoError(t, err)
	require.Len(t, out, len(elems))
	assert.Equal(t, 1, built)
	assert.Equal(t, 29, clf.GetMetrics().Skipped)
}

// TestClassifyElements_FetchesWholeBatch tests that every descriptor of a batch is fetched, needed or not
func TestClassifyElements_FetchesWholeBatch(t *testing.T) {
	factory := &testutil.MockFactory{DefaultHas: true}
	fetcher := &testutil.CountingFetcher{}
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{Factory: factory, Fetcher: fetcher})

	_, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(sequential(7)), classifier.WithBatchSize(5)))
	require.NoError(t, err)

	require.Equal(t, 2, fetcher.CallCount())
	assert.Len(t, fetcher.Calls[0], 5)
	assert.Len(t, fetcher.Calls[1], 2)
}

// TestClassifyElements_EarlyStop tests that the consumer can stop mid-stream
func TestClassifyElements_EarlyStop(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})

	count := 0
	for _, err := range clf.ClassifyElements(context.Background(), slices.Values(sequential(10)), classifier.WithBatchSize(3)) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

// TestClassifyElements_ContextCanceled tests that a canceled context stops before any fetch
func TestClassifyElements_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &testutil.CountingFetcher{}
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{Fetcher: fetcher})

	_, err := collectElements(clf.ClassifyElements(ctx, slices.Values(sequential(3))))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fetcher.CallCount())
}

// TestClassifyElements_FetchError tests that fetch failures are propagated
func TestClassifyElements_FetchError(t *testing.T) {
	boom := errors.New("index unavailable")
	fetcher := descriptor.FetcherFunc(func(ctx context.Context, elems []descriptor.Element) ([]*vector.Array, error) {
		return nil, boom
	})
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{Fetcher: fetcher})

	_, err := collectElements(clf.ClassifyElements(context.Background(), slices.Values(sequential(3))))
	assert.ErrorIs(t, err, boom)
}

// TestClassifyOne tests single descriptor classification
func TestClassifyOne(t *testing.T) {
	clf := newClassifier(t, &testutil.DummyClassifier{}, classifier.Config{})
	d := descriptor.NewMemoryElement(descriptorType, "single").SetVector(vector.New(0.5, 1))

	e, err := clf.ClassifyOne(context.Background(), d, false)
	require.NoError(t, err)
	assert.Equal(t, "single", e.UID())
	assert.Equal(t, 0.5, confidence(t, e))

	_, err = clf.ClassifyOne(context.Background(), descriptor.NewMemoryElement(descriptorType, "empty"), false)
	assert.ErrorIs(t, err, classifier.ErrNoVector)
}
