package formula

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
)

var nan = math.NaN()

// frame used across tests: grid [0,5,10], a sampled at 0 and 10, b at 5 and 10.
func sampleFrame() *models.AlignedFrame {
	return &models.AlignedFrame{
		Timestamps: []int64{0, 5, 10},
		Columns: map[string][]float64{
			"a": {1, 1, 3},
			"b": {nan, 2, 2},
			"z": {1, 0, 2},
			"n": {nan, nan, nan},
		},
	}
}

func assertSeries(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want absent, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func eval(t *testing.T, src string, frame *models.AlignedFrame) ([]float64, error) {
	t.Helper()
	e, err := Parse(src, []string{"a", "b", "z", "n"})
	require.NoError(t, err)
	return e.Eval(frame)
}

func TestEval(t *testing.T) {
	cases := []struct {
		src  string
		want []float64
	}{
		{"a + b", []float64{nan, 3, 5}},
		{"a * 2", []float64{2, 2, 6}},
		{"2 * 3", []float64{6, 6, 6}},
		{"avg(a)", []float64{5.0 / 3, 5.0 / 3, 5.0 / 3}},
		{"a - avg(a)", []float64{1 - 5.0/3, 1 - 5.0/3, 3 - 5.0/3}},
		{"sum(b)", []float64{4, 4, 4}},
		{"min(b) + max(a)", []float64{5, 5, 5}},
		{"avg(n)", []float64{nan, nan, nan}},
		{"-a ** 2", []float64{-1, -1, -9}},
		{"abs(-a)", []float64{1, 1, 3}},
		{"sqrt(a - 2)", []float64{nan, nan, 1}},
		{"sqrt(4)", []float64{2, 2, 2}},
		{"a / z", []float64{1, nan, 1.5}},
		{"1 / 0", []float64{nan, nan, nan}},
		{"10 ** 400", []float64{nan, nan, nan}},
		{"0 ** -1", []float64{nan, nan, nan}},
		{"b ** 0", []float64{nan, 1, 1}},
		{"1 ** b", []float64{nan, 1, 1}},
		{"sin(0 * a) + cos(0 * a)", []float64{1, 1, 1}},
		{"avg(a + b)", []float64{4, 4, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := eval(t, tc.src, sampleFrame())
			require.NoError(t, err)
			assertSeries(t, tc.want, got)
		})
	}
}

func TestEvalDoesNotMutateFrame(t *testing.T) {
	frame := sampleFrame()
	e, err := Parse("a", []string{"a"})
	require.NoError(t, err)

	first, err := e.Eval(frame)
	require.NoError(t, err)
	first[0] = 42

	second, err := e.Eval(frame)
	require.NoError(t, err)
	assertSeries(t, []float64{1, 1, 3}, second)
	assertSeries(t, []float64{1, 1, 3}, frame.Columns["a"])
}

func TestEvalEmptyGrid(t *testing.T) {
	frame := &models.AlignedFrame{Timestamps: []int64{}, Columns: map[string][]float64{"a": {}}}

	got, err := eval(t, "a + 1", frame)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = eval(t, "avg(a)", frame)
	var rte *EvaluationRuntimeError
	require.ErrorAs(t, err, &rte)
	assert.Contains(t, rte.Error(), "avg")
}

func TestEvalFrameMismatch(t *testing.T) {
	e, err := Parse("a + b", []string{"a", "b"})
	require.NoError(t, err)

	var rte *EvaluationRuntimeError
	_, err = e.Eval(&models.AlignedFrame{Timestamps: []int64{1}, Columns: map[string][]float64{"a": {1}}})
	require.ErrorAs(t, err, &rte)

	_, err = e.Eval(&models.AlignedFrame{Timestamps: []int64{1}, Columns: map[string][]float64{"a": {1}, "b": {1, 2}}})
	require.ErrorAs(t, err, &rte)

	_, err = e.Eval(nil)
	require.ErrorAs(t, err, &rte)
}

func TestEvalIdempotentAndConcurrent(t *testing.T) {
	frame := sampleFrame()
	e, err := Parse("(a + b) / z - avg(a)", []string{"a", "b", "z"})
	require.NoError(t, err)
	want, err := e.Eval(frame)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Eval(frame)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assertSeries(t, want, results[i])
	}
}
