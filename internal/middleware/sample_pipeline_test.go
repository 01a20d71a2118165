package middleware

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
)

type recordingProc struct {
	mu      sync.Mutex
	batches [][]*models.ChannelSample
	fails   int
}

func (p *recordingProc) ProcessBatch(_ context.Context, s []*models.ChannelSample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("downstream unavailable")
	}
	p.batches = append(p.batches, append([]*models.ChannelSample(nil), s...))
	return nil
}

func (p *recordingProc) total() (batches, samples int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.batches {
		samples += len(b)
	}
	return len(p.batches), samples
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *nopMetrics) RecordEvaluation(string) {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}
func (m *nopMetrics) RecordLatency(string, float64)     {}
func (m *nopMetrics) RecordGridSize(int)                {}
func (m *nopMetrics) RecordSamplesIngested(string, int) {}

func sample(id string, ts int64) *models.ChannelSample {
	return &models.ChannelSample{ChannelID: id, TimestampMs: ts, Value: 1}
}

func TestSamplePipelineFlushesFullBatches(t *testing.T) {
	proc := &recordingProc{}
	p := NewSamplePipeline(proc, &nopMetrics{}, WithBatchSize(2), WithBatchTimeout(time.Hour))
	ctx := context.Background()
	p.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Process(ctx, sample("a", int64(i))))
	}
	require.Eventually(t, func() bool {
		b, _ := proc.total()
		return b == 2
	}, time.Second, 5*time.Millisecond)

	// Stop flushes the remainder
	p.Stop()
	b, n := proc.total()
	assert.Equal(t, 3, b)
	assert.Equal(t, 5, n)
}

func TestSamplePipelineFlushesOnTimeout(t *testing.T) {
	proc := &recordingProc{}
	p := NewSamplePipeline(proc, &nopMetrics{}, WithBatchSize(100), WithBatchTimeout(10*time.Millisecond))
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	require.NoError(t, p.Process(ctx, sample("a", 1)))
	require.Eventually(t, func() bool {
		_, n := proc.total()
		return n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSamplePipelineRetriesThenDrops(t *testing.T) {
	proc := &recordingProc{fails: 1}
	m := &nopMetrics{}
	p := NewSamplePipeline(proc, m, WithBatchSize(1), WithBatchTimeout(time.Hour), WithFlushRetries(1))
	ctx := context.Background()
	p.Start(ctx)

	require.NoError(t, p.Process(ctx, sample("a", 1)))
	require.Eventually(t, func() bool {
		_, n := proc.total()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	proc.mu.Lock()
	proc.fails = 5
	proc.mu.Unlock()
	require.NoError(t, p.Process(ctx, sample("a", 2)))
	p.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.errors["pipeline_batch_drop"])
}

func TestSamplePipelineValidates(t *testing.T) {
	p := NewSamplePipeline(&recordingProc{}, &nopMetrics{})
	ctx := context.Background()
	assert.Error(t, p.Process(ctx, nil))
	assert.Error(t, p.Process(ctx, &models.ChannelSample{TimestampMs: 1}))
	assert.Error(t, p.Process(ctx, &models.ChannelSample{ChannelID: "a", TimestampMs: -1}))
	assert.Error(t, p.Process(ctx, &models.ChannelSample{ChannelID: "a", Value: math.Inf(1)}))
}
