package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWeatherAPI struct {
	postalCode  string
	countryCode string
	units       string
	lang        string
}

func (f *fakeWeatherAPI) DailyWeatherForecast(ctx context.Context, postalCode, countryCode, units, lang string) (types.WeatherForecast, error) {
	f.postalCode = postalCode
	f.countryCode = countryCode
	f.units = units
	f.lang = lang
	return types.WeatherForecast{
		PostalCode:  postalCode,
		CountryCode: countryCode,
		Days:        []types.WeatherDay{{Condition: "Clear"}},
	}, nil
}

func TestWeatherFetchOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSite", func(t *testing.T) {
		m := NewWeather(&fakeWeatherAPI{}, testSettings(t, false), &countingRecoverer{}, "", "")
		_, err := m.FetchOnce(ctx)
		assert.ErrorIs(t, err, ErrSiteNotSelected)
	})

	t.Run("UsesSiteLocation", func(t *testing.T) {
		fake := &fakeWeatherAPI{}
		m := NewWeather(fake, testSettings(t, true), &countingRecoverer{}, "", "")

		forecast, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, "75001", fake.postalCode)
		assert.Equal(t, "FR", fake.countryCode)
		assert.Equal(t, "metric", fake.units)
		assert.Equal(t, "en", fake.lang)
		require.Len(t, forecast.Days, 1)
	})

	t.Run("CustomUnitsAndLang", func(t *testing.T) {
		fake := &fakeWeatherAPI{}
		m := NewWeather(fake, testSettings(t, true), &countingRecoverer{}, "imperial", "fr")
		_, err := m.FetchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, "imperial", fake.units)
		assert.Equal(t, "fr", fake.lang)
	})
}

type fakePriceAPI struct {
	price types.ElectricityPrice
	err   error
}

func (f *fakePriceAPI) ElectricityPrice(ctx context.Context) (types.ElectricityPrice, error) {
	return f.price, f.err
}

func TestPriceFetchOnce(t *testing.T) {
	t.Run("NoSiteNeeded", func(t *testing.T) {
		fake := &fakePriceAPI{price: types.ElectricityPrice{
			Days: []types.TempoDay{{Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Color: types.TempoRed}},
		}}
		// no site selected on purpose, the tariff is national
		m := NewPrice(fake, &countingRecoverer{})

		price, err := m.FetchOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, price.Days, 1)
		assert.Equal(t, types.TempoRed, price.Days[0].Color)
	})
}
