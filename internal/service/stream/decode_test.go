package stream

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSamples(t *testing.T) {
	frame := `{"type":"data","data":[
		{"channelId":"a","timestamp":1700000000000,"value":1.5},
		{"channelId":"b","timestamp":"2023-11-14T22:13:20Z","value":null},
		{"channelId":"c","timestamp":1700000000,"value":2},
		{"channelId":"","timestamp":1,"value":1},
		{"channelId":"d","timestamp":"soon","value":1},
		{"channelId":"e","timestamp":1,"value":"high"},
		{"channelId":"f","timestamp":1}
	]}`
	got, skipped, err := DecodeSamples([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, got, 3)

	assert.Equal(t, "a", got[0].ChannelID)
	assert.Equal(t, int64(1700000000000), got[0].TimestampMs)
	assert.Equal(t, 1.5, got[0].Value)

	assert.Equal(t, int64(1700000000000), got[1].TimestampMs)
	assert.True(t, math.IsNaN(got[1].Value))

	// numeric timestamps are taken as milliseconds as sent
	assert.Equal(t, int64(1700000000), got[2].TimestampMs)
}

func TestDecodeSamplesShapes(t *testing.T) {
	got, _, err := DecodeSamples([]byte(`[{"channelId":"a","timestamp":1,"value":1},{"channelId":"b","timestamp":2,"value":2}]`))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, _, err = DecodeSamples([]byte(`{"channelId":"a","timestamp":1,"value":-3e2}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, -300.0, got[0].Value)

	got, skipped, err := DecodeSamples([]byte(`{"type":"ack","data":[{"channelId":"a","timestamp":1,"value":1}]}`))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, skipped)

	got, _, err = DecodeSamples([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = DecodeSamples([]byte(`{"channelId":`))
	assert.Error(t, err)
}
