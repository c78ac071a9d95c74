package types

import "time"

// Session is an authenticated vendor API session. It is held in memory only;
// the remembered user's password hash is what gets persisted, and a fresh
// session is derived by re-authenticating.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session has a token that has not expired.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// RememberedUser is the persisted login of the last successful authentication.
// Only the md5 hash of the password is stored, never the password itself.
type RememberedUser struct {
	Email       string `json:"email"`
	MD5Password string `json:"md5Password"`
}

// Empty reports whether there is no remembered user.
func (u RememberedUser) Empty() bool {
	return u.Email == "" || u.MD5Password == ""
}

// Site represents a metered installation (e.g. a home with solar panels).
// A user may have access to several sites but monitors one at a time.
type Site struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Timezone    string `json:"timezone"`
}

// Trend classifies the direction of a short series of samples.
type Trend int

const (
	TrendDecreasing Trend = -1
	TrendStable     Trend = 0
	TrendIncreasing Trend = 1
)

func (t Trend) String() string {
	switch t {
	case TrendDecreasing:
		return "decreasing"
	case TrendIncreasing:
		return "increasing"
	default:
		return "stable"
	}
}

// SiteRealtimeData is the latest instantaneous power snapshot for a site.
// It is replaced wholesale on every poll cycle; no history is retained here.
type SiteRealtimeData struct {
	ProductionW  float64 `json:"productionW"`
	ConsumptionW float64 `json:"consumptionW"`
	InjectionW   float64 `json:"injectionW"`
	WithdrawalW  float64 `json:"withdrawalW"`

	// Rates are each wattage normalized to 0-1 against the max gauge power.
	ProductionRate  float64 `json:"productionRate"`
	ConsumptionRate float64 `json:"consumptionRate"`
	InjectionRate   float64 `json:"injectionRate"`
	WithdrawalRate  float64 `json:"withdrawalRate"`

	ProductionTrend  *Trend `json:"productionTrend,omitempty"`
	ConsumptionTrend *Trend `json:"consumptionTrend,omitempty"`
	InjectionTrend   *Trend `json:"injectionTrend,omitempty"`
	WithdrawalTrend  *Trend `json:"withdrawalTrend,omitempty"`

	SampleTime      time.Time `json:"sampleTime"`
	SampleTimeText  string    `json:"sampleTimeText"`
	FetchedTimeText string    `json:"fetchedTimeText"`
}

// SiteDailyData holds cumulative totals since local midnight plus the two
// derived ratios.
type SiteDailyData struct {
	Day time.Time `json:"day"`

	TotalProductionWH  float64 `json:"totalProductionWH"`
	TotalConsumptionWH float64 `json:"totalConsumptionWH"`
	TotalInjectionWH   float64 `json:"totalInjectionWH"`
	TotalWithdrawalsWH float64 `json:"totalWithdrawalsWH"`

	SelfConsumptionRate float64 `json:"selfConsumptionRate"`
	AutonomyRate        float64 `json:"autonomyRate"`
}

// SelfConsumptionRate is the fraction of produced power consumed on-site
// rather than exported, clamped to [0,1]. Zero production yields 0.
func SelfConsumptionRate(productionWH, injectionWH float64) float64 {
	if productionWH <= 0 {
		return 0
	}
	return clampRate((productionWH - injectionWH) / productionWH)
}

// AutonomyRate is the fraction of consumed power sourced on-site rather than
// imported, clamped to [0,1]. Zero consumption yields 0.
func AutonomyRate(consumptionWH, withdrawalsWH float64) float64 {
	if consumptionWH <= 0 {
		return 0
	}
	return clampRate((consumptionWH - withdrawalsWH) / consumptionWH)
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Measure identifies which power flow a time series describes.
type Measure string

const (
	MeasureProduction  Measure = "production"
	MeasureConsumption Measure = "consumption"
	MeasureInjection   Measure = "injection"
	MeasureWithdrawal  Measure = "withdrawal"
)

// AggregationLevel is the bucket size the vendor aggregates samples into.
type AggregationLevel string

const (
	AggregationLevelNone AggregationLevel = "none"
	AggregationLevelHour AggregationLevel = "hour"
	AggregationLevelDay  AggregationLevel = "day"
)

// AggregationType is how samples within a bucket are combined.
type AggregationType string

const (
	AggregationTypeSum AggregationType = "sum"
	AggregationTypeAvg AggregationType = "avg"
	AggregationTypeMax AggregationType = "max"
)

// TimeSeriesPoint is a single timestamped sample.
type TimeSeriesPoint struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered time->value series for one measure of one site.
type TimeSeries struct {
	SiteID  int64             `json:"siteID"`
	Measure Measure           `json:"measure"`
	Points  []TimeSeriesPoint `json:"points"`
}

// TempoColor is the day classification of the tempo electricity tariff.
type TempoColor string

const (
	TempoBlue  TempoColor = "blue"
	TempoWhite TempoColor = "white"
	TempoRed   TempoColor = "red"
)

// TempoDay is the tariff for one calendar day.
type TempoDay struct {
	Date               time.Time  `json:"date"`
	Color              TempoColor `json:"color"`
	PeakCentsPerKWH    float64    `json:"peakCentsPerKWH"`
	OffPeakCentsPerKWH float64    `json:"offPeakCentsPerKWH"`
}

// ElectricityPrice is the most recent tariff snapshot. It has no identity
// beyond being the latest successfully fetched value.
type ElectricityPrice struct {
	FetchedAt time.Time  `json:"fetchedAt"`
	Days      []TempoDay `json:"days"`
}

// Today returns the tempo day covering now, if present.
func (p ElectricityPrice) Today(now time.Time) (TempoDay, bool) {
	for _, d := range p.Days {
		if d.Date.Year() == now.Year() && d.Date.YearDay() == now.YearDay() {
			return d, true
		}
	}
	return TempoDay{}, false
}

// WeatherDay is a single day of forecast.
type WeatherDay struct {
	Date        time.Time `json:"date"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	CloudCover  int       `json:"cloudCover"`
	TempMinC    float64   `json:"tempMinC"`
	TempMaxC    float64   `json:"tempMaxC"`
}

// WeatherForecast is the most recent daily forecast snapshot for the selected
// site's location.
type WeatherForecast struct {
	FetchedAt   time.Time    `json:"fetchedAt"`
	PostalCode  string       `json:"postalCode"`
	CountryCode string       `json:"countryCode"`
	Days        []WeatherDay `json:"days"`
}
