package usecase

import (
	"context"
	"fmt"
	"time"

	"SigDerive/internal/domain/models"
	drepo "SigDerive/internal/domain/repository"
)

// SampleProcessor routes ingested samples to the configured backend.
type SampleProcessor struct {
	pub     drepo.SamplePublisher
	store   drepo.SampleWriter
	metrics drepo.Metrics
	backend string
}

// NewSampleProcessor creates a processor for backend "kafka" or "clickhouse".
func NewSampleProcessor(pub drepo.SamplePublisher, store drepo.SampleWriter, metrics drepo.Metrics, backend string) *SampleProcessor {
	return &SampleProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

func (p *SampleProcessor) Process(ctx context.Context, s *models.ChannelSample) error {
	if s == nil {
		return fmt.Errorf("sample is nil")
	}
	return p.ProcessBatch(ctx, []*models.ChannelSample{s})
}

func (p *SampleProcessor) ProcessBatch(ctx context.Context, samples []*models.ChannelSample) error {
	if len(samples) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		if p.pub == nil {
			err = fmt.Errorf("kafka backend has no publisher")
			break
		}
		err = p.pub.PublishBatch(ctx, samples)
	case "clickhouse":
		if p.store == nil {
			err = fmt.Errorf("clickhouse backend has no writer")
			break
		}
		err = p.store.StoreBatch(ctx, samples)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	p.metrics.RecordSamplesIngested(p.backend, len(samples))
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes the publisher if one is set.
func (p *SampleProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
