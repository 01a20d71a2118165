package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
)

// BatchProc is the downstream the pipeline flushes into.
type BatchProc interface {
	ProcessBatch(ctx context.Context, samples []*models.ChannelSample) error
}

// SamplePipeline sits between the websocket feed and the ingest backend. It validates
// samples, collects them into batches and flushes a batch when it is full or when the
// batch timeout elapses. A failed flush is retried with backoff before the batch is dropped.
type SamplePipeline struct {
	proc      BatchProc
	metrics   domrepo.Metrics
	batchSize int
	timeout   time.Duration
	retries   int

	mu      sync.Mutex
	inCh    chan *models.ChannelSample
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

type PipelineOption func(*SamplePipeline)

// WithBatchSize sets the number of samples per flush.
func WithBatchSize(n int) PipelineOption {
	return func(p *SamplePipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchTimeout sets the longest a sample waits before being flushed.
func WithBatchTimeout(d time.Duration) PipelineOption {
	return func(p *SamplePipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithFlushRetries sets how many times a failed flush is retried.
func WithFlushRetries(n int) PipelineOption {
	return func(p *SamplePipeline) {
		if n >= 0 {
			p.retries = n
		}
	}
}

func NewSamplePipeline(proc BatchProc, metrics domrepo.Metrics, opts ...PipelineOption) *SamplePipeline {
	p := &SamplePipeline{
		proc:      proc,
		metrics:   metrics,
		batchSize: 500,
		timeout:   time.Second,
		retries:   3,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.inCh = make(chan *models.ChannelSample, p.batchSize*2)
	return p
}

// Start launches the batching loop. The loop stops on Stop or when ctx is done and
// flushes whatever is pending.
func (p *SamplePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop ends the loop and waits for the final flush.
func (p *SamplePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Process validates s and queues it for the next batch.
func (p *SamplePipeline) Process(ctx context.Context, s *models.ChannelSample) error {
	if err := validateSample(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	select {
	case p.inCh <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return fmt.Errorf("pipeline stopped")
	}
}

func (p *SamplePipeline) loop(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.timeout)
	defer ticker.Stop()

	batch := make([]*models.ChannelSample, 0, p.batchSize)
	flush := func(fctx context.Context) {
		if len(batch) == 0 {
			return
		}
		p.flush(fctx, batch)
		batch = make([]*models.ChannelSample, 0, p.batchSize)
	}

	for {
		select {
		case <-p.stopCh:
			p.drain(&batch)
			flush(context.Background())
			return
		case <-ctx.Done():
			p.drain(&batch)
			flush(context.Background())
			return
		case s := <-p.inCh:
			batch = append(batch, s)
			if len(batch) >= p.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (p *SamplePipeline) drain(batch *[]*models.ChannelSample) {
	for {
		select {
		case s := <-p.inCh:
			*batch = append(*batch, s)
		default:
			return
		}
	}
}

func (p *SamplePipeline) flush(ctx context.Context, batch []*models.ChannelSample) {
	start := time.Now()
	backoff := 50 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := p.proc.ProcessBatch(ctx, batch)
		if err == nil {
			p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("pipeline_flush")
		if attempt >= p.retries || ctx.Err() != nil {
			p.metrics.RecordError("pipeline_batch_drop")
			return
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

func validateSample(s *models.ChannelSample) error {
	if s == nil {
		return fmt.Errorf("sample nil")
	}
	if s.ChannelID == "" {
		return fmt.Errorf("channel id empty")
	}
	if s.TimestampMs < 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if math.IsInf(s.Value, 0) {
		return fmt.Errorf("value not finite")
	}
	return nil
}
