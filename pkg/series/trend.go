// Package series holds the math applied to sampled power data: trend
// classification over short windows and downsampling of long ones.
package series

import (
	"math"

	"github.com/paulthvt/solareco/pkg/types"
)

// DefaultTrendThreshold is the relative slope below which a window is
// considered stable.
const DefaultTrendThreshold = 0.1

// CalculateTrend classifies the direction of the values using a least
// squares fit over their positions. The slope is normalized by the mean so
// the threshold is relative to the signal's magnitude. NaN samples are
// skipped; fewer than two usable samples yields no trend.
func CalculateTrend(values []float64, threshold float64) (types.Trend, bool) {
	filtered := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) < 2 {
		return types.TrendStable, false
	}

	n := float64(len(filtered))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range filtered {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return types.TrendStable, true
	}
	slope := (n*sumXY - sumX*sumY) / denom

	mean := sumY / n
	if mean != 0 {
		slope /= mean
	}

	switch {
	case slope > threshold:
		return types.TrendIncreasing, true
	case slope < -threshold:
		return types.TrendDecreasing, true
	default:
		return types.TrendStable, true
	}
}
