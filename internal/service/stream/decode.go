package stream

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"

	"SigDerive/internal/domain/models"
	"SigDerive/pkg/util"
)

// DecodeSamples reads samples from a JSON frame. Three shapes are accepted:
//
//	{"type":"data","data":[{"channelId":"a","timestamp":1700000000000,"value":1.5}, ...]}
//	[{"channelId":"a","timestamp":...,"value":...}, ...]
//	{"channelId":"a","timestamp":...,"value":...}
//
// A null value is an absent sample. Entries without a channel id, with an unparseable
// timestamp, or with a missing, non-numeric or non-finite value are skipped and counted.
// Frames of any other type (acks, pongs) decode to no samples.
func DecodeSamples(b []byte) (samples []*models.ChannelSample, skipped int, err error) {
	if !gjson.ValidBytes(b) {
		return nil, 0, fmt.Errorf("invalid json frame")
	}
	root := gjson.ParseBytes(b)

	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.Get("data").IsArray():
		if t := root.Get("type"); t.Exists() && t.String() != "data" {
			return nil, 0, nil
		}
		items = root.Get("data").Array()
	case root.Get("channelId").Exists():
		items = []gjson.Result{root}
	default:
		return nil, 0, nil
	}

	samples = make([]*models.ChannelSample, 0, len(items))
	for _, it := range items {
		s, ok := decodeSample(it)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped, nil
}

func decodeSample(it gjson.Result) (*models.ChannelSample, bool) {
	id := it.Get("channelId").String()
	if id == "" {
		return nil, false
	}
	ts, ok := decodeTimestamp(it.Get("timestamp"))
	if !ok {
		return nil, false
	}
	v := it.Get("value")
	switch v.Type {
	case gjson.Null:
		if !v.Exists() {
			return nil, false
		}
		return &models.ChannelSample{ChannelID: id, TimestampMs: ts, Value: models.Absent()}, true
	case gjson.Number:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		return &models.ChannelSample{ChannelID: id, TimestampMs: ts, Value: f}, true
	default:
		return nil, false
	}
}

func decodeTimestamp(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		n := r.Int()
		if n < 0 {
			return 0, false
		}
		return n, true
	case gjson.String:
		return util.ParseEpochMs(r.String())
	default:
		return 0, false
	}
}
