package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/timerange"
	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistoryAPI struct {
	calls   int
	queries []api.TimeSeriesQuery
	points  int
}

func (f *fakeHistoryAPI) SiteTimeSeries(ctx context.Context, q api.TimeSeriesQuery) (types.TimeSeries, error) {
	f.calls++
	f.queries = append(f.queries, q)
	n := f.points
	if n == 0 {
		n = 10
	}
	points := make([]types.TimeSeriesPoint, n)
	step := q.End.Sub(q.Start) / time.Duration(n)
	for i := range points {
		points[i] = types.TimeSeriesPoint{TS: q.Start.Add(time.Duration(i) * step), Value: float64(i)}
	}
	return types.TimeSeries{SiteID: q.SiteID, Measure: q.Measure, Points: points}, nil
}

func TestHistoryFetchOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("NoSite", func(t *testing.T) {
		m := NewHistory(&fakeHistoryAPI{}, testSettings(t, false), &countingRecoverer{}, nil)
		_, err := m.FetchOnce(ctx)
		assert.ErrorIs(t, err, ErrSiteNotSelected)
	})

	t.Run("OneSeriesPerMeasure", func(t *testing.T) {
		fake := &fakeHistoryAPI{}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction, types.MeasureConsumption})

		data, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		require.Len(t, data.Series, 2)
		assert.Equal(t, types.MeasureProduction, data.Series[0].Measure)
		assert.Equal(t, types.MeasureConsumption, data.Series[1].Measure)
	})

	t.Run("DownsamplesToUnitBudget", func(t *testing.T) {
		fake := &fakeHistoryAPI{points: 1000}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction})
		m.SetRange(m.Range().WithUnit(timerange.UnitDay))

		data, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		require.Len(t, data.Series, 1)
		assert.Len(t, data.Series[0].Points, timerange.UnitDay.TargetPoints())
	})

	t.Run("PastWindowIsCached", func(t *testing.T) {
		fake := &fakeHistoryAPI{}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction})
		// a fully past calendar week never changes
		m.SetRange(m.Range().WithUnit(timerange.UnitWeek).WithWeekOffset(now, 2))

		_, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		first := fake.calls

		_, err = m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, fake.calls, "the second fetch must be served from cache")
	})

	t.Run("CurrentWindowIsNotCached", func(t *testing.T) {
		fake := &fakeHistoryAPI{}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction})
		m.SetRange(m.Range().WithUnit(timerange.UnitDay).WithDayOffset(now, 0))

		_, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		_, err = m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, fake.calls, "a live window must be refetched")
	})

	t.Run("InvalidCustomRangeRejected", func(t *testing.T) {
		m := NewHistory(&fakeHistoryAPI{}, testSettings(t, true), &countingRecoverer{}, nil)
		m.SetRange(m.Range().
			WithUnit(timerange.UnitCustom).
			WithCustom(now.Add(-time.Hour), now.Add(time.Hour)))

		_, err := m.FetchOnce(ctx)
		assert.Error(t, err)
	})

	t.Run("HourUnitUsesRawSamples", func(t *testing.T) {
		fake := &fakeHistoryAPI{}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction})
		m.SetRange(m.Range().WithUnit(timerange.UnitHour))

		_, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		require.Len(t, fake.queries, 1)
		assert.Equal(t, types.AggregationLevelNone, fake.queries[0].Level)
	})

	t.Run("SetRangeIsPickedUp", func(t *testing.T) {
		fake := &fakeHistoryAPI{}
		m := NewHistory(fake, testSettings(t, true), &countingRecoverer{},
			[]types.Measure{types.MeasureProduction})

		r := m.Range().WithUnit(timerange.UnitWeek).WithWeekOffset(now, 1)
		m.SetRange(r)

		data, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, r, data.Range)

		wantStart, wantEnd := r.Week.FetchBounds()
		require.NotEmpty(t, fake.queries)
		assert.Equal(t, wantStart, fake.queries[0].Start)
		assert.Equal(t, wantEnd, fake.queries[0].End)
	})
}
