package derived

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
	"SigDerive/internal/services/formula"
)

var nan = math.NaN()

func abSeries() map[string]models.ChannelSeries {
	return map[string]models.ChannelSeries{
		"a": series("a", [2]float64{0, 1}, [2]float64{10, 3}),
		"b": series("b", [2]float64{5, 2}, [2]float64{10, 2}),
	}
}

func values(points []models.Point) []*float64 {
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func TestEngineEvaluate(t *testing.T) {
	e := NewEngine()

	points, err := e.Evaluate("a + b", abSeries())
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, int64(0), points[0].Timestamp)
	assert.Nil(t, points[0].Value)
	assert.Equal(t, 3.0, *points[1].Value)
	assert.Equal(t, 5.0, *points[2].Value)

	points, err = e.Evaluate("avg(a)", abSeries())
	require.NoError(t, err)
	for _, p := range points {
		require.NotNil(t, p.Value)
		assert.InDelta(t, 1.6667, *p.Value, 1e-4)
	}
}

func TestEngineDivisionByZeroIsIsolated(t *testing.T) {
	in := map[string]models.ChannelSeries{
		"a": series("a", [2]float64{1, 4}, [2]float64{2, 4}, [2]float64{3, 4}),
		"b": series("b", [2]float64{1, 2}, [2]float64{2, 0}, [2]float64{3, 1}),
	}
	points, err := NewEngine().Evaluate("a / b", in)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 2.0, *points[0].Value)
	assert.Nil(t, points[1].Value)
	assert.Equal(t, 4.0, *points[2].Value)
}

func TestEngineRejectsBeforeEvaluating(t *testing.T) {
	e := NewEngine()
	var ife *formula.InvalidFormulaError

	_, err := e.Evaluate("a + c", abSeries())
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "c", ife.Token)

	// No data at all still reports the formula problem first.
	_, err = e.Evaluate("a.__class__", map[string]models.ChannelSeries{"a": series("a")})
	require.ErrorAs(t, err, &ife)

	_, err = NewEngine(WithMaxFormulaLength(4)).Evaluate("a + b", abSeries())
	require.ErrorAs(t, err, &ife)
}

func TestEngineDataNotFound(t *testing.T) {
	_, err := NewEngine().Evaluate("a + b", map[string]models.ChannelSeries{
		"b": series("b"),
		"a": series("a"),
	})
	var dnf *DataNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Equal(t, []string{"a", "b"}, dnf.Channels)
	assert.Contains(t, err.Error(), "a, b")
}

func TestEnginePartialDataProceeds(t *testing.T) {
	points, err := NewEngine().Evaluate("a + e", map[string]models.ChannelSeries{
		"a": series("a", [2]float64{1, 1}),
		"e": series("e"),
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Nil(t, points[0].Value)
}

func TestEngineIdempotent(t *testing.T) {
	e := NewEngine()
	in := abSeries()
	first, err := e.Evaluate("a * 2 - max(b)", in)
	require.NoError(t, err)
	second, err := e.Evaluate("a * 2 - max(b)", in)
	require.NoError(t, err)
	assert.Equal(t, values(first), values(second))
	assert.Equal(t, first, second)
}

func TestSerialize(t *testing.T) {
	points, err := Serialize([]int64{1, 2, 3, 4}, []float64{1.5, nan, math.Inf(1), math.Inf(-1)})
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.Equal(t, 1.5, *points[0].Value)
	for _, p := range points[1:] {
		assert.Nil(t, p.Value)
	}
	assert.Equal(t, int64(4), points[3].Timestamp)

	_, err = Serialize([]int64{1}, nil)
	require.Error(t, err)

	points, err = Serialize(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}
