package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/series"
	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/timerange"
	"github.com/paulthvt/solareco/pkg/types"
)

const historyCacheSize = 64

// HistoryAPI is the slice of the vendor client the time-series loop uses.
type HistoryAPI interface {
	SiteTimeSeries(ctx context.Context, q api.TimeSeriesQuery) (types.TimeSeries, error)
}

// HistoryData is one refresh of chart series for the active time range,
// already downsampled to the range's point budget.
type HistoryData struct {
	Range  timerange.SelectedTimeRange `json:"range"`
	Series []types.TimeSeries          `json:"series"`
}

// History polls aggregated time series for the dashboard chart. Windows that
// lie fully in the past can never change, so their downsampled series are
// kept in a small LRU cache and reused instead of refetched.
type History struct {
	api      HistoryAPI
	settings *settings.Store
	measures []types.Measure
	cache    *lru.Cache
	slot     Slot[HistoryData]
	loop     *loop[HistoryData]

	mu  sync.Mutex
	rng timerange.SelectedTimeRange
}

func NewHistory(apiClient HistoryAPI, store *settings.Store, sessions SessionRecoverer, measures []types.Measure) *History {
	if len(measures) == 0 {
		measures = []types.Measure{types.MeasureProduction, types.MeasureConsumption}
	}
	cache, _ := lru.New(historyCacheSize)

	unit := timerange.UnitDay
	if idx := store.Current().DashboardTimeUnitIndex; idx != nil {
		unit = timerange.UnitFromIndex(*idx)
	}

	m := &History{
		api:      apiClient,
		settings: store,
		measures: measures,
		cache:    cache,
		rng:      timerange.NewSelectedTimeRange(time.Now(), unit),
	}
	m.loop = &loop[HistoryData]{
		domain:  "history",
		slot:    &m.slot,
		fetch:   m.FetchOnce,
		delay:   fixedDelay[HistoryData](timeSeriesInterval, retryDelay),
		recover: sessions.Recover,
	}
	return m
}

func (m *History) Run(ctx context.Context) {
	m.loop.run(ctx)
}

func (m *History) Latest() (Result[HistoryData], bool) {
	return m.slot.Latest()
}

func (m *History) Subscribe() <-chan Result[HistoryData] {
	return m.slot.Subscribe()
}

// Range returns the currently selected time range.
func (m *History) Range() timerange.SelectedTimeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng
}

// SetRange replaces the selected time range. The next iteration (or a manual
// FetchOnce) picks it up.
func (m *History) SetRange(r timerange.SelectedTimeRange) {
	m.mu.Lock()
	m.rng = r
	m.mu.Unlock()
}

// FetchOnce fetches one series per configured measure over the active range
// and downsamples each to the range's point budget.
func (m *History) FetchOnce(ctx context.Context) (HistoryData, error) {
	st := m.settings.Current()
	if !st.HasSite() {
		return HistoryData{}, ErrSiteNotSelected
	}

	rng := m.Range()
	now := time.Now()
	if m.loop.now != nil {
		now = m.loop.now()
	}
	if rng.Unit == timerange.UnitCustom {
		if err := rng.Custom.Validate(now); err != nil {
			return HistoryData{}, fmt.Errorf("invalid custom range: %w", err)
		}
	}

	start, end := rng.Bounds()
	target := rng.Unit.TargetPoints()

	data := HistoryData{Range: rng, Series: make([]types.TimeSeries, 0, len(m.measures))}
	for _, measure := range m.measures {
		key := fmt.Sprintf("%d|%s|%d|%d|%d", *st.SiteID, measure, start.Unix(), end.Unix(), target)

		// only fully past windows are immutable enough to cache
		cacheable := end.Before(now)
		if cacheable {
			if cached, ok := m.cache.Get(key); ok {
				data.Series = append(data.Series, cached.(types.TimeSeries))
				continue
			}
		}

		s, err := m.api.SiteTimeSeries(ctx, api.TimeSeriesQuery{
			SiteID:  *st.SiteID,
			Measure: measure,
			Start:   start,
			End:     end,
			Level:   aggregationFor(rng.Unit),
			Type:    types.AggregationTypeAvg,
		})
		if err != nil {
			return HistoryData{}, err
		}
		s.Points = series.Downsample(s.Points, target)

		if cacheable {
			m.cache.Add(key, s)
		}
		data.Series = append(data.Series, s)
	}
	return data, nil
}

func aggregationFor(unit timerange.Unit) types.AggregationLevel {
	if unit == timerange.UnitHour {
		return types.AggregationLevelNone
	}
	return types.AggregationLevelHour
}
