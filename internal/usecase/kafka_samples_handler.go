package usecase

import (
	"context"
	"fmt"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	"SigDerive/internal/service/stream"
	pkgkafka "SigDerive/pkg/kafka"
)

// KafkaSamplesHandler consumes the samples topic and writes to storage.
type KafkaSamplesHandler struct {
	topic   string
	storage domrepo.SampleWriter
	metrics domrepo.Metrics
}

func NewKafkaSamplesHandler(topic string, storage domrepo.SampleWriter, metrics domrepo.Metrics) *KafkaSamplesHandler {
	return &KafkaSamplesHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSamplesHandler) Topic() string { return h.topic }

// Handle decodes one message ({channelId, timestamp, value}, or a batch of them) and stores
// the valid samples. A message with no valid sample is an error so it goes to the DLQ.
func (h *KafkaSamplesHandler) Handle(ctx context.Context, b []byte) error {
	samples, skipped, err := stream.DecodeSamples(b)
	if err != nil {
		h.metrics.RecordError("consumer_decode")
		return err
	}
	if skipped > 0 {
		h.metrics.RecordError("consumer_invalid_sample")
	}
	if len(samples) == 0 {
		return fmt.Errorf("message carries no valid sample")
	}

	h.metrics.RecordLatency("ingest_e2e", time.Since(time.UnixMilli(latest(samples))).Seconds())

	start := time.Now()
	err = h.storage.StoreBatch(ctx, samples)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSamplesIngested("clickhouse", len(samples))
	return nil
}

func latest(samples []*models.ChannelSample) int64 {
	var ts int64
	for _, s := range samples {
		if s.TimestampMs > ts {
			ts = s.TimestampMs
		}
	}
	return ts
}

var _ pkgkafka.MessageHandler = (*KafkaSamplesHandler)(nil)
