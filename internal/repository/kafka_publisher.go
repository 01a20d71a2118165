package repository

import (
	"context"
	"math"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	pkgkafka "SigDerive/pkg/kafka"
)

// sampleMessage is the samples-topic payload. Value is null for an absent sample.
type sampleMessage struct {
	ChannelID string   `json:"channelId"`
	Timestamp int64    `json:"timestamp"`
	Value     *float64 `json:"value"`
}

func toSampleMessage(s *models.ChannelSample) sampleMessage {
	m := sampleMessage{ChannelID: s.ChannelID, Timestamp: s.TimestampMs}
	if !math.IsNaN(s.Value) {
		v := s.Value
		m.Value = &v
	}
	return m
}

// KafkaSamplePublisher implements SamplePublisher. Messages are keyed by channel id.
type KafkaSamplePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.SamplePublisher = (*KafkaSamplePublisher)(nil)

func NewKafkaSamplePublisher(producer *pkgkafka.Producer, topic string) *KafkaSamplePublisher {
	return &KafkaSamplePublisher{producer: producer, topic: topic}
}

func (p *KafkaSamplePublisher) Publish(ctx context.Context, s *models.ChannelSample) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.ChannelID), toSampleMessage(s))
}

func (p *KafkaSamplePublisher) PublishBatch(ctx context.Context, samples []*models.ChannelSample) error {
	if len(samples) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(samples))
	for _, s := range samples {
		if s == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(s.ChannelID), Value: toSampleMessage(s)})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by the app.
func (p *KafkaSamplePublisher) Close() error { return nil }

// KafkaEventPublisher publishes registry change events keyed by signal id.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishSignalEvent(ctx context.Context, ev models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ID), ev)
}

// NopEventPublisher drops events. Used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishSignalEvent(context.Context, models.SignalEvent) error { return nil }
