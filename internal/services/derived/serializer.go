package derived

import (
	"fmt"
	"math"

	"SigDerive/internal/domain/models"
)

// Serialize zips the grid with the evaluated values. NaN and ±Inf become a nil value.
// A length mismatch is a programming fault and is reported as a plain error.
func Serialize(timestamps []int64, values []float64) ([]models.Point, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("serialize: %d timestamps but %d values", len(timestamps), len(values))
	}
	out := make([]models.Point, len(values))
	for i, v := range values {
		out[i].Timestamp = timestamps[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		out[i].Value = &v
	}
	return out, nil
}
