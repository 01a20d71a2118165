package models

import "math"

// Sample is a single raw channel reading. An absent reading carries NaN.
type Sample struct {
	TimestampMs int64
	Value       float64
}

// IsAbsent reports whether the sample has no value.
func (s Sample) IsAbsent() bool { return math.IsNaN(s.Value) }

// Absent returns the marker used for "no value" inside the engine.
func Absent() float64 { return math.NaN() }

// ChannelSeries is one channel's samples for a requested range, ascending by timestamp.
type ChannelSeries struct {
	ChannelID string
	Samples   []Sample
}

// AlignedFrame is the shared timestamp grid plus one column per channel.
// Columns[id] always has len(Timestamps) entries; NaN marks an absent position.
// A frame is built once per request and must not be mutated afterwards.
type AlignedFrame struct {
	Timestamps []int64
	Columns    map[string][]float64
}

// Len returns the grid length.
func (f *AlignedFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Timestamps)
}

// Point is one row of an evaluation result. Value is nil when there is no value.
type Point struct {
	Timestamp int64    `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// ChannelSample is a sample tagged with its channel, as carried by the ingest path.
type ChannelSample struct {
	ChannelID   string
	TimestampMs int64
	Value       float64
}
