package repository

import (
	"context"
	"errors"

	"SigDerive/internal/domain/models"
)

// ErrSignalNotFound is returned by a SignalRegistry when no signal has the requested id.
var ErrSignalNotFound = errors.New("derived signal not found")

// ErrSignalExists is returned by Create when the id is already taken.
var ErrSignalExists = errors.New("derived signal already exists")

// TimeSeriesStore fetches one channel's samples in [startMs, endMs], ascending.
// An empty series is not an error.
type TimeSeriesStore interface {
	Fetch(ctx context.Context, channelID string, startMs, endMs int64) (models.ChannelSeries, error)
	Health(ctx context.Context) error
}

// SignalRegistry persists derived signal definitions.
type SignalRegistry interface {
	Create(ctx context.Context, s *models.DerivedSignal) error
	Get(ctx context.Context, id string) (*models.DerivedSignal, error)
	List(ctx context.Context) ([]*models.DerivedSignal, error) // ordered by name
	Delete(ctx context.Context, id string) error
}

type SampleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.ChannelSample, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type SamplePublisher interface {
	Publish(ctx context.Context, s *models.ChannelSample) error
	PublishBatch(ctx context.Context, samples []*models.ChannelSample) error
	Close() error
}

type SampleWriter interface {
	Store(ctx context.Context, s *models.ChannelSample) error
	StoreBatch(ctx context.Context, samples []*models.ChannelSample) error
}

// EventPublisher announces registry changes.
type EventPublisher interface {
	PublishSignalEvent(ctx context.Context, ev models.SignalEvent) error
}

type Metrics interface {
	RecordEvaluation(result string)
	RecordError(kind string)
	RecordLatency(stage string, seconds float64)
	RecordGridSize(rows int)
	RecordSamplesIngested(backend string, n int)
}
