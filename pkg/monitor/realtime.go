package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/series"
	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/types"
)

// trendWindowSize caps the per-metric sample history used for trend
// classification, about half an hour at the server's sample cadence.
const trendWindowSize = 15

const clockFormat = "15:04:05"

// SessionRecoverer restores the session after an unauthorized response.
type SessionRecoverer interface {
	Recover(ctx context.Context)
}

// RealtimeAPI is the slice of the vendor client the realtime loop uses.
type RealtimeAPI interface {
	SiteRealtime(ctx context.Context, siteID int64) (api.RealtimeSample, error)
}

// Realtime polls the instantaneous power sample and derives gauge rates and
// per-metric trends from a short in-memory window.
type Realtime struct {
	api      RealtimeAPI
	settings *settings.Store
	slot     Slot[types.SiteRealtimeData]
	loop     *loop[types.SiteRealtimeData]

	mu          sync.Mutex
	lastSample  time.Time
	production  []float64
	consumption []float64
	injection   []float64
	withdrawal  []float64
}

func NewRealtime(apiClient RealtimeAPI, store *settings.Store, sessions SessionRecoverer) *Realtime {
	m := &Realtime{api: apiClient, settings: store}
	m.loop = &loop[types.SiteRealtimeData]{
		domain:  "realtime",
		slot:    &m.slot,
		fetch:   m.FetchOnce,
		delay:   m.delay,
		recover: sessions.Recover,
	}
	return m
}

// Run polls until ctx is cancelled.
func (m *Realtime) Run(ctx context.Context) {
	m.loop.run(ctx)
}

// Latest returns the most recent result, if any.
func (m *Realtime) Latest() (Result[types.SiteRealtimeData], bool) {
	return m.slot.Latest()
}

// Subscribe returns a latest-value channel of results.
func (m *Realtime) Subscribe() <-chan Result[types.SiteRealtimeData] {
	return m.slot.Subscribe()
}

// FetchOnce performs a single fetch-and-map cycle, as used by both the loop
// and manual refresh.
func (m *Realtime) FetchOnce(ctx context.Context) (types.SiteRealtimeData, error) {
	st := m.settings.Current()
	if !st.HasSite() {
		return types.SiteRealtimeData{}, ErrSiteNotSelected
	}
	sample, err := m.api.SiteRealtime(ctx, *st.SiteID)
	if err != nil {
		return types.SiteRealtimeData{}, err
	}
	return m.build(sample, st), nil
}

func (m *Realtime) delay(r Result[types.SiteRealtimeData]) time.Duration {
	if !r.OK() {
		if errors.Is(r.Err, ErrSiteNotSelected) {
			return noSiteDelay
		}
		return retryDelay
	}
	return realtimeDelay(r.Value.SampleTime, r.FetchedAt)
}

func (m *Realtime) build(sample api.RealtimeSample, st types.Settings) types.SiteRealtimeData {
	production := sample.ProductionW
	if production <= float64(st.ProductionNoiseThreshold()) {
		production = 0
	}

	m.mu.Lock()
	// the server may return the same sample if we poll early; only a new
	// sample advances the trend windows
	if !sample.SampleTime.Equal(m.lastSample) {
		m.lastSample = sample.SampleTime
		m.production = appendWindow(m.production, production)
		m.consumption = appendWindow(m.consumption, sample.ConsumptionW)
		m.injection = appendWindow(m.injection, sample.InjectionW)
		m.withdrawal = appendWindow(m.withdrawal, sample.WithdrawalW)
	}
	data := types.SiteRealtimeData{
		ProductionTrend:  trendOf(m.production),
		ConsumptionTrend: trendOf(m.consumption),
		InjectionTrend:   trendOf(m.injection),
		WithdrawalTrend:  trendOf(m.withdrawal),
	}
	m.mu.Unlock()

	gauge := float64(st.MaxPowerGauge())
	data.ProductionW = production
	data.ConsumptionW = sample.ConsumptionW
	data.InjectionW = sample.InjectionW
	data.WithdrawalW = sample.WithdrawalW
	data.ProductionRate = gaugeRate(production, gauge)
	data.ConsumptionRate = gaugeRate(sample.ConsumptionW, gauge)
	data.InjectionRate = gaugeRate(sample.InjectionW, gauge)
	data.WithdrawalRate = gaugeRate(sample.WithdrawalW, gauge)

	now := time.Now()
	if m.loop.now != nil {
		now = m.loop.now()
	}
	data.SampleTime = sample.SampleTime
	data.SampleTimeText = sample.SampleTime.Local().Format(clockFormat)
	data.FetchedTimeText = now.Local().Format(clockFormat)
	return data
}

func appendWindow(window []float64, v float64) []float64 {
	window = append(window, v)
	if len(window) > trendWindowSize {
		window = window[len(window)-trendWindowSize:]
	}
	return window
}

func trendOf(window []float64) *types.Trend {
	t, ok := series.CalculateTrend(window, series.DefaultTrendThreshold)
	if !ok {
		return nil
	}
	return &t
}

func gaugeRate(w, gauge float64) float64 {
	if gauge <= 0 {
		return 0
	}
	r := w / gauge
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
