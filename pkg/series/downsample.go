package series

import (
	"math"

	"github.com/paulthvt/solareco/pkg/types"
)

// Downsample reduces points to at most target points using largest triangle
// three buckets: the first and last points are kept and each bucket keeps
// the point forming the largest triangle with the previously kept point and
// the average of the next bucket. Input at or under target, or a target
// under 3, is returned unchanged.
func Downsample(points []types.TimeSeriesPoint, target int) []types.TimeSeriesPoint {
	if target < 3 || len(points) <= target {
		return points
	}

	sampled := make([]types.TimeSeriesPoint, 0, target)
	sampled = append(sampled, points[0])

	// interior points split across target-2 buckets
	bucketSize := float64(len(points)-2) / float64(target-2)

	prev := 0
	for i := 0; i < target-2; i++ {
		bucketStart := int(math.Floor(float64(i)*bucketSize)) + 1
		bucketEnd := int(math.Floor(float64(i+1)*bucketSize)) + 1
		if bucketEnd >= len(points)-1 {
			bucketEnd = len(points) - 1
		}

		nextStart := bucketEnd
		nextEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if nextEnd >= len(points) {
			nextEnd = len(points)
		}

		avgX, avgY := bucketAverage(points[nextStart:nextEnd])

		prevX := float64(points[prev].TS.Unix())
		prevY := points[prev].Value

		best := bucketStart
		bestArea := -1.0
		for j := bucketStart; j < bucketEnd; j++ {
			x := float64(points[j].TS.Unix())
			area := math.Abs((prevX-avgX)*(points[j].Value-prevY)-(prevX-x)*(avgY-prevY)) / 2
			if area > bestArea {
				bestArea = area
				best = j
			}
		}

		sampled = append(sampled, points[best])
		prev = best
	}

	sampled = append(sampled, points[len(points)-1])
	return sampled
}

func bucketAverage(points []types.TimeSeriesPoint) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += float64(p.TS.Unix())
		sumY += p.Value
	}
	n := float64(len(points))
	return sumX / n, sumY / n
}
