package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
	"SigDerive/internal/services/derived"
	"SigDerive/internal/services/formula"
)

func newEvalUseCase(store *fakeStore, m *fakeMetrics, concurrency int) *DerivedSignalUseCase {
	return NewDerivedSignalUseCase(store, derived.NewEngine(), m, nil, concurrency, time.Second)
}

func values(points []models.Point) []interface{} {
	out := make([]interface{}, len(points))
	for i, p := range points {
		if p.Value == nil {
			out[i] = nil
			continue
		}
		out[i] = *p.Value
	}
	return out
}

func TestEvaluateAlignsAndEvaluates(t *testing.T) {
	store := &fakeStore{data: map[string][]models.Sample{
		"a": {{TimestampMs: 0, Value: 1}, {TimestampMs: 10, Value: 3}},
		"b": {{TimestampMs: 5, Value: 2}, {TimestampMs: 10, Value: 2}},
	}}
	m := newFakeMetrics()
	uc := newEvalUseCase(store, m, 4)

	points, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "a + b", Channels: []string{"a", "b"}, StartMs: 0, EndMs: 100})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []int64{0, 5, 10}, []int64{points[0].Timestamp, points[1].Timestamp, points[2].Timestamp})
	assert.Equal(t, []interface{}{nil, 3.0, 5.0}, values(points))
	assert.Equal(t, 1, m.results["ok"])
}

func TestEvaluateValidatesBeforeFetch(t *testing.T) {
	store := &fakeStore{}
	m := newFakeMetrics()
	uc := newEvalUseCase(store, m, 4)

	_, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "a + __import__(b)", Channels: []string{"a", "b"}})
	var ife *formula.InvalidFormulaError
	require.ErrorAs(t, err, &ife)
	assert.Zero(t, store.fetched())
	assert.Equal(t, 1, m.errors["invalid_formula"])
}

func TestEvaluateNoData(t *testing.T) {
	uc := newEvalUseCase(&fakeStore{}, newFakeMetrics(), 4)
	_, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "a * 2", Channels: []string{"b", "a"}, EndMs: 10})
	var dnf *derived.DataNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Equal(t, []string{"a", "b"}, dnf.Channels)
}

func TestEvaluateFetchErrorFailsRequest(t *testing.T) {
	store := &fakeStore{
		failOn: "b",
		data:   map[string][]models.Sample{"a": {{TimestampMs: 1, Value: 1}}},
	}
	m := newFakeMetrics()
	uc := newEvalUseCase(store, m, 4)

	_, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "a + b", Channels: []string{"a", "b"}, EndMs: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch channel b")
	assert.Equal(t, "internal", ErrorKind(err))
	assert.Equal(t, 1, m.errors["internal"])
}

func TestEvaluateBoundedConcurrency(t *testing.T) {
	data := map[string][]models.Sample{}
	channels := make([]string, 12)
	for i := range channels {
		id := fmt.Sprintf("c%d", i)
		channels[i] = id
		data[id] = []models.Sample{{TimestampMs: int64(i), Value: float64(i)}}
	}
	store := &fakeStore{data: data}
	uc := newEvalUseCase(store, newFakeMetrics(), 3)

	points, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "c0 + c11", Channels: channels, EndMs: 100})
	require.NoError(t, err)
	assert.Len(t, points, 12)
	assert.Equal(t, 12, store.fetched())
	assert.LessOrEqual(t, atomic.LoadInt32(&store.maxSeen), int32(3))
}

func TestEvaluateFetchTimeout(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	defer close(store.block)
	uc := NewDerivedSignalUseCase(store, derived.NewEngine(), newFakeMetrics(), nil, 2, 20*time.Millisecond)

	_, err := uc.Evaluate(context.Background(), EvaluateParams{Formula: "a", Channels: []string{"a"}, EndMs: 10})
	require.Error(t, err)
	assert.Equal(t, "timeout", ErrorKind(err))
}
