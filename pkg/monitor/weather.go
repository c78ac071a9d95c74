package monitor

import (
	"context"

	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/types"
)

// WeatherAPI is the slice of the vendor client the weather loop uses.
type WeatherAPI interface {
	DailyWeatherForecast(ctx context.Context, postalCode, countryCode, units, lang string) (types.WeatherForecast, error)
}

// Weather polls the daily forecast for the selected site's location. The
// postal and country codes ride on the settings so no site lookup is needed.
type Weather struct {
	api      WeatherAPI
	settings *settings.Store
	units    string
	lang     string
	slot     Slot[types.WeatherForecast]
	loop     *loop[types.WeatherForecast]
}

func NewWeather(apiClient WeatherAPI, store *settings.Store, sessions SessionRecoverer, units, lang string) *Weather {
	if units == "" {
		units = "metric"
	}
	if lang == "" {
		lang = "en"
	}
	m := &Weather{api: apiClient, settings: store, units: units, lang: lang}
	m.loop = &loop[types.WeatherForecast]{
		domain:  "weather",
		slot:    &m.slot,
		fetch:   m.FetchOnce,
		delay:   fixedDelay[types.WeatherForecast](weatherInterval, retryDelay),
		recover: sessions.Recover,
	}
	return m
}

func (m *Weather) Run(ctx context.Context) {
	m.loop.run(ctx)
}

func (m *Weather) Latest() (Result[types.WeatherForecast], bool) {
	return m.slot.Latest()
}

func (m *Weather) Subscribe() <-chan Result[types.WeatherForecast] {
	return m.slot.Subscribe()
}

// FetchOnce fetches the forecast for the selected site's postal code.
func (m *Weather) FetchOnce(ctx context.Context) (types.WeatherForecast, error) {
	st := m.settings.Current()
	if !st.HasSite() || st.SitePostalCode == "" {
		return types.WeatherForecast{}, ErrSiteNotSelected
	}
	return m.api.DailyWeatherForecast(ctx, st.SitePostalCode, st.SiteCountryCode, m.units, m.lang)
}
