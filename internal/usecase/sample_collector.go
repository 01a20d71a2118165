package usecase

import (
	"context"

	"SigDerive/internal/domain/models"
	drepo "SigDerive/internal/domain/repository"
	mid "SigDerive/internal/middleware"
	applogger "SigDerive/pkg/logger"
)

// SampleCollector reads samples from a live stream and feeds them into the ingest pipeline.
type SampleCollector struct {
	stream  drepo.SampleStream
	proc    *SampleProcessor
	metrics drepo.Metrics
	pipe    *mid.SamplePipeline
	log     *applogger.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSampleCollector creates a collector. pipe may be nil, in which case every sample is
// processed individually.
func NewSampleCollector(stream drepo.SampleStream, proc *SampleProcessor, metrics drepo.Metrics, pipe *mid.SamplePipeline, l *applogger.Logger) *SampleCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &SampleCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe, log: l}
}

// IsConnected returns true if the stream is connected.
func (c *SampleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SampleCollector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// run reads until ctx is done, reconnecting whenever the stream fails.
func (c *SampleCollector) run(ctx context.Context) {
	defer close(c.done)
	for {
		smpCh, errCh := c.stream.Read(ctx)
		c.consume(ctx, smpCh)
		if ctx.Err() != nil {
			return
		}
		if err := <-errCh; err != nil {
			c.metrics.RecordError("stream")
			c.log.Warn("stream read failed, reconnecting", applogger.Error(err))
		}
		for {
			err := c.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.metrics.RecordError("stream_reconnect")
			c.log.Error("stream reconnect failed", applogger.Error(err))
		}
	}
}

func (c *SampleCollector) consume(ctx context.Context, smpCh <-chan *models.ChannelSample) {
	for s := range smpCh {
		var err error
		if c.pipe != nil {
			err = c.pipe.Process(ctx, s)
		} else {
			err = c.proc.Process(ctx, s)
		}
		if err != nil && ctx.Err() == nil {
			c.log.Debug("sample not ingested", applogger.String("channel", s.ChannelID), applogger.Error(err))
		}
	}
}

// Shutdown closes the stream, waits for the read loop and flushes the pipeline.
func (c *SampleCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.stream.Close()
	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if c.proc != nil {
		c.proc.Close()
	}
	return err
}
