package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"SigDerive/internal/domain/models"
)

type fakeStore struct {
	data     map[string][]models.Sample
	failOn   string
	inFlight int32
	maxSeen  int32
	block    chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeStore) Fetch(ctx context.Context, id string, startMs, endMs int64) (models.ChannelSeries, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if id == f.failOn {
		return models.ChannelSeries{}, errors.New("store unavailable")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.ChannelSeries{}, ctx.Err()
		}
	}
	var out []models.Sample
	for _, s := range f.data[id] {
		if s.TimestampMs >= startMs && s.TimestampMs <= endMs {
			out = append(out, s)
		}
	}
	return models.ChannelSeries{ChannelID: id, Samples: out}, nil
}

func (f *fakeStore) Health(context.Context) error { return nil }

func (f *fakeStore) fetched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMetrics struct {
	mu       sync.Mutex
	results  map[string]int
	errors   map[string]int
	ingested map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{results: map[string]int{}, errors: map[string]int{}, ingested: map[string]int{}}
}

func (m *fakeMetrics) RecordEvaluation(result string) {
	m.mu.Lock()
	m.results[result]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordGridSize(int)            {}

func (m *fakeMetrics) RecordSamplesIngested(backend string, n int) {
	m.mu.Lock()
	m.ingested[backend] += n
	m.mu.Unlock()
}

type fakeWriter struct {
	mu      sync.Mutex
	stored  []*models.ChannelSample
	failErr error
}

func (w *fakeWriter) Store(ctx context.Context, s *models.ChannelSample) error {
	return w.StoreBatch(ctx, []*models.ChannelSample{s})
}

func (w *fakeWriter) StoreBatch(_ context.Context, samples []*models.ChannelSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failErr != nil {
		return w.failErr
	}
	w.stored = append(w.stored, samples...)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stored)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.SignalEvent
	err    error
}

func (e *fakeEvents) PublishSignalEvent(_ context.Context, ev models.SignalEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.err
}
