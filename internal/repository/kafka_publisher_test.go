package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigDerive/internal/domain/models"
)

func TestSampleMessageEncoding(t *testing.T) {
	b, err := json.Marshal(toSampleMessage(&models.ChannelSample{ChannelID: "a", TimestampMs: 5, Value: 1.25}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"channelId":"a","timestamp":5,"value":1.25}`, string(b))

	b, err = json.Marshal(toSampleMessage(&models.ChannelSample{ChannelID: "a", TimestampMs: 5, Value: models.Absent()}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"channelId":"a","timestamp":5,"value":null}`, string(b))
}
