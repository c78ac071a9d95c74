package series

import (
	"math"
	"testing"
	"time"

	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTrend(t *testing.T) {
	t.Run("Increasing", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{100, 120, 140, 160, 180}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendIncreasing, trend)
	})

	t.Run("Decreasing", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{180, 160, 140, 120, 100}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendDecreasing, trend)
	})

	t.Run("SlowRiseIsStableAtDefaultThreshold", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{100, 102.5, 105}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendStable, trend)
	})

	t.Run("SlowRiseIsIncreasingAtLowerThreshold", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{100, 102.5, 105}, 0.02)
		require.True(t, ok)
		assert.Equal(t, types.TrendIncreasing, trend)
	})

	t.Run("Flat", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{500, 500, 500, 500}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendStable, trend)
	})

	t.Run("AllZeros", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{0, 0, 0}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendStable, trend)
	})

	t.Run("NaNFiltered", func(t *testing.T) {
		trend, ok := CalculateTrend([]float64{100, math.NaN(), 120, 140, math.NaN(), 160, 180}, DefaultTrendThreshold)
		require.True(t, ok)
		assert.Equal(t, types.TrendIncreasing, trend)
	})

	t.Run("TooFewSamples", func(t *testing.T) {
		_, ok := CalculateTrend([]float64{100}, DefaultTrendThreshold)
		assert.False(t, ok)

		_, ok = CalculateTrend(nil, DefaultTrendThreshold)
		assert.False(t, ok)

		_, ok = CalculateTrend([]float64{math.NaN(), 100, math.NaN()}, DefaultTrendThreshold)
		assert.False(t, ok)
	})
}

func makePoints(n int, value func(i int) float64) []types.TimeSeriesPoint {
	base := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	points := make([]types.TimeSeriesPoint, n)
	for i := range points {
		points[i] = types.TimeSeriesPoint{
			TS:    base.Add(time.Duration(i) * time.Minute),
			Value: value(i),
		}
	}
	return points
}

func TestDownsample(t *testing.T) {
	t.Run("ShortInputUnchanged", func(t *testing.T) {
		points := makePoints(50, func(i int) float64 { return float64(i) })
		assert.Equal(t, points, Downsample(points, 120))
	})

	t.Run("TinyTargetUnchanged", func(t *testing.T) {
		points := makePoints(50, func(i int) float64 { return float64(i) })
		assert.Equal(t, points, Downsample(points, 2))
	})

	t.Run("ReducesToTarget", func(t *testing.T) {
		points := makePoints(1000, func(i int) float64 {
			return math.Sin(float64(i) / 20)
		})
		out := Downsample(points, 150)
		assert.Len(t, out, 150)
	})

	t.Run("KeepsEndpoints", func(t *testing.T) {
		points := makePoints(500, func(i int) float64 { return float64(i % 37) })
		out := Downsample(points, 100)
		require.Len(t, out, 100)
		assert.Equal(t, points[0], out[0])
		assert.Equal(t, points[len(points)-1], out[len(out)-1])
	})

	t.Run("PreservesOrder", func(t *testing.T) {
		points := makePoints(800, func(i int) float64 { return math.Cos(float64(i) / 10) })
		out := Downsample(points, 120)
		for i := 1; i < len(out); i++ {
			assert.True(t, out[i].TS.After(out[i-1].TS), "points must stay in time order")
		}
	})

	t.Run("KeepsSpikes", func(t *testing.T) {
		points := makePoints(600, func(i int) float64 {
			if i == 300 {
				return 5000
			}
			return 100
		})
		out := Downsample(points, 60)
		var found bool
		for _, p := range out {
			if p.Value == 5000 {
				found = true
				break
			}
		}
		assert.True(t, found, "the spike should survive downsampling")
	})
}
