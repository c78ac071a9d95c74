package monitor

import (
	"context"
	"time"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/types"
)

// DailyAPI is the slice of the vendor client the daily loop uses.
type DailyAPI interface {
	SiteDaily(ctx context.Context, siteID int64, day time.Time) (api.DailyBuckets, error)
}

// Daily polls the energy accumulated since local midnight and derives the
// self-consumption and autonomy ratios.
type Daily struct {
	api      DailyAPI
	settings *settings.Store
	slot     Slot[types.SiteDailyData]
	loop     *loop[types.SiteDailyData]
}

func NewDaily(apiClient DailyAPI, store *settings.Store, sessions SessionRecoverer) *Daily {
	m := &Daily{api: apiClient, settings: store}
	m.loop = &loop[types.SiteDailyData]{
		domain:  "daily",
		slot:    &m.slot,
		fetch:   m.FetchOnce,
		delay:   fixedDelay[types.SiteDailyData](dailyInterval, retryDelay),
		recover: sessions.Recover,
	}
	return m
}

func (m *Daily) Run(ctx context.Context) {
	m.loop.run(ctx)
}

func (m *Daily) Latest() (Result[types.SiteDailyData], bool) {
	return m.slot.Latest()
}

func (m *Daily) Subscribe() <-chan Result[types.SiteDailyData] {
	return m.slot.Subscribe()
}

// FetchOnce fetches today's buckets and reduces them to totals and rates.
func (m *Daily) FetchOnce(ctx context.Context) (types.SiteDailyData, error) {
	st := m.settings.Current()
	if !st.HasSite() {
		return types.SiteDailyData{}, ErrSiteNotSelected
	}

	now := time.Now()
	if m.loop.now != nil {
		now = m.loop.now()
	}
	buckets, err := m.api.SiteDaily(ctx, *st.SiteID, now)
	if err != nil {
		return types.SiteDailyData{}, err
	}

	data := types.SiteDailyData{
		Day:                buckets.Day,
		TotalProductionWH:  sum(buckets.ProductionsWH),
		TotalConsumptionWH: sum(buckets.ConsumptionsWH),
		TotalInjectionWH:   sum(buckets.InjectionsWH),
		TotalWithdrawalsWH: sum(buckets.WithdrawalsWH),
	}
	data.SelfConsumptionRate = types.SelfConsumptionRate(data.TotalProductionWH, data.TotalInjectionWH)
	data.AutonomyRate = types.AutonomyRate(data.TotalConsumptionWH, data.TotalWithdrawalsWH)
	return data, nil
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
