package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
)

func TestSampleProcessorRoutesToBackend(t *testing.T) {
	w := &fakeWriter{}
	m := newFakeMetrics()
	p := NewSampleProcessor(nil, w, m, "clickhouse")

	require.NoError(t, p.Process(context.Background(), &models.ChannelSample{ChannelID: "a", TimestampMs: 1, Value: 1}))
	assert.Equal(t, 1, w.count())
	assert.Equal(t, 1, m.ingested["clickhouse"])

	assert.Error(t, p.Process(context.Background(), nil))

	kp := NewSampleProcessor(nil, nil, m, "kafka")
	assert.Error(t, kp.ProcessBatch(context.Background(), []*models.ChannelSample{{ChannelID: "a"}}))

	w.failErr = errors.New("insert failed")
	assert.Error(t, p.ProcessBatch(context.Background(), []*models.ChannelSample{{ChannelID: "a"}}))
	assert.Equal(t, 2, m.errors["process_batch"])
}

func TestKafkaSamplesHandler(t *testing.T) {
	w := &fakeWriter{}
	m := newFakeMetrics()
	h := NewKafkaSamplesHandler("channel-samples", w, m)
	assert.Equal(t, "channel-samples", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"channelId":"a","timestamp":1700000000000,"value":null}`)))
	require.Equal(t, 1, w.count())
	assert.True(t, math.IsNaN(w.stored[0].Value))

	assert.Error(t, h.Handle(context.Background(), []byte(`{"channelId":"a"`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"channelId":"a","timestamp":1,"value":"x"}`)))
	assert.Equal(t, 1, m.errors["consumer_decode"])

	w.failErr = errors.New("insert failed")
	assert.Error(t, h.Handle(context.Background(), []byte(`{"channelId":"a","timestamp":1,"value":1}`)))
	assert.Equal(t, 1, m.errors["consumer_store"])
}
