package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDailyAPI struct {
	buckets api.DailyBuckets
	err     error
}

func (f *fakeDailyAPI) SiteDaily(ctx context.Context, siteID int64, day time.Time) (api.DailyBuckets, error) {
	if f.err != nil {
		return api.DailyBuckets{}, f.err
	}
	return f.buckets, nil
}

func TestDailyFetchOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSite", func(t *testing.T) {
		m := NewDaily(&fakeDailyAPI{}, testSettings(t, false), &countingRecoverer{})
		_, err := m.FetchOnce(ctx)
		assert.ErrorIs(t, err, ErrSiteNotSelected)
	})

	t.Run("TotalsAndRates", func(t *testing.T) {
		day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
		fake := &fakeDailyAPI{buckets: api.DailyBuckets{
			Day:            day,
			ConsumptionsWH: []float64{700, 500},
			ProductionsWH:  []float64{400, 600},
			InjectionsWH:   []float64{50, 150},
			WithdrawalsWH:  []float64{100, 200},
		}}
		m := NewDaily(fake, testSettings(t, true), &countingRecoverer{})

		data, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, day, data.Day)
		assert.Equal(t, 1200.0, data.TotalConsumptionWH)
		assert.Equal(t, 1000.0, data.TotalProductionWH)
		assert.Equal(t, 200.0, data.TotalInjectionWH)
		assert.Equal(t, 300.0, data.TotalWithdrawalsWH)
		assert.InDelta(t, 0.8, data.SelfConsumptionRate, 1e-9)
		assert.InDelta(t, 0.75, data.AutonomyRate, 1e-9)
	})

	t.Run("ZeroProductionDay", func(t *testing.T) {
		fake := &fakeDailyAPI{buckets: api.DailyBuckets{
			ConsumptionsWH: []float64{500},
			WithdrawalsWH:  []float64{500},
		}}
		m := NewDaily(fake, testSettings(t, true), &countingRecoverer{})

		data, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, data.SelfConsumptionRate)
		assert.Equal(t, 0.0, data.AutonomyRate)
	})

	t.Run("ErrorPassesThrough", func(t *testing.T) {
		fake := &fakeDailyAPI{err: &api.HTTPError{Code: 500, Body: "oops"}}
		m := NewDaily(fake, testSettings(t, true), &countingRecoverer{})
		_, err := m.FetchOnce(ctx)
		var he *api.HTTPError
		require.ErrorAs(t, err, &he)
	})
}
