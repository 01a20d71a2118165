package derived

import (
	"sort"

	"SigDerive/internal/domain/models"
)

// Align builds the union timestamp grid of all series and one forward-filled column per
// channel. A channel with no samples yields an all-absent column. Align returns nil when
// no channel has any sample.
//
// Within one channel a repeated timestamp keeps the last sample in input order. An absent
// sample is still a sample: its own row is absent and it is carried forward like any value.
func Align(series map[string]models.ChannelSeries) *models.AlignedFrame {
	total := 0
	for _, s := range series {
		total += len(s.Samples)
	}
	if total == 0 {
		return nil
	}

	grid := make([]int64, 0, total)
	for _, s := range series {
		for _, smp := range s.Samples {
			grid = append(grid, smp.TimestampMs)
		}
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i] < grid[j] })
	grid = dedupSorted(grid)

	frame := &models.AlignedFrame{
		Timestamps: grid,
		Columns:    make(map[string][]float64, len(series)),
	}
	for id, s := range series {
		frame.Columns[id] = fillColumn(grid, s.Samples)
	}
	return frame
}

func dedupSorted(ts []int64) []int64 {
	if len(ts) == 0 {
		return ts
	}
	out := ts[:1]
	for _, t := range ts[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

// fillColumn walks grid and samples together once. samples are expected ascending; a
// stable sort is applied when they are not so the walk stays correct.
func fillColumn(grid []int64, samples []models.Sample) []float64 {
	col := make([]float64, len(grid))
	if !sort.SliceIsSorted(samples, func(i, j int) bool { return samples[i].TimestampMs < samples[j].TimestampMs }) {
		sorted := make([]models.Sample, len(samples))
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimestampMs < sorted[j].TimestampMs })
		samples = sorted
	}

	last, have := models.Absent(), false
	j := 0
	for i, t := range grid {
		for j < len(samples) && samples[j].TimestampMs <= t {
			last, have = samples[j].Value, true
			j++
		}
		if have {
			col[i] = last
		} else {
			col[i] = models.Absent()
		}
	}
	return col
}
