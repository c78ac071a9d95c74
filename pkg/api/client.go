package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/paulthvt/solareco/pkg/common"
	"github.com/paulthvt/solareco/pkg/log"
	"github.com/paulthvt/solareco/pkg/types"
)

const loginPath = "api/v1/authentication"

// Service is the vendor API surface consumed by the session manager and the
// poll loops.
type Service interface {
	// Authenticate logs in with an email and the md5 hex digest of the
	// password and returns a fresh session. It does not store the session;
	// callers decide whether to adopt it via UseSession.
	Authenticate(ctx context.Context, email, md5Password string) (types.Session, error)

	// UseSession makes the given session's token be sent on subsequent calls.
	UseSession(s types.Session)
	// ClearSession forgets the current session token.
	ClearSession()

	// Sites lists the sites the authenticated user can monitor.
	Sites(ctx context.Context) ([]types.Site, error)

	// SiteRealtime returns the latest instantaneous power sample for a site.
	SiteRealtime(ctx context.Context, siteID int64) (RealtimeSample, error)

	// SiteDaily returns the per-interval energy buckets accumulated since
	// local midnight of the given day.
	SiteDaily(ctx context.Context, siteID int64, day time.Time) (DailyBuckets, error)

	// SiteTimeSeries returns an aggregated series between explicit bounds.
	SiteTimeSeries(ctx context.Context, q TimeSeriesQuery) (types.TimeSeries, error)

	// SiteTimeSeriesAgo is the relative variant of SiteTimeSeries: the server
	// resolves "value units ago until now" itself.
	SiteTimeSeriesAgo(ctx context.Context, siteID int64, measure types.Measure, unit string, value int) (types.TimeSeries, error)

	// ElectricityPrice returns the current tempo tariff calendar.
	ElectricityPrice(ctx context.Context) (types.ElectricityPrice, error)

	// DailyWeatherForecast returns the daily forecast for a postal code.
	DailyWeatherForecast(ctx context.Context, postalCode, countryCode, units, lang string) (types.WeatherForecast, error)
}

// RealtimeSample is the raw instantaneous sample as reported by the vendor.
type RealtimeSample struct {
	SiteID       int64
	ProductionW  float64
	ConsumptionW float64
	InjectionW   float64
	WithdrawalW  float64
	SampleTime   time.Time
}

// DailyBuckets are the vendor's per-interval energy readings since local
// midnight, one slice per power flow. Slices may have differing lengths when
// a meter lags; callers sum them independently.
type DailyBuckets struct {
	Day            time.Time
	ProductionsWH  []float64
	ConsumptionsWH []float64
	InjectionsWH   []float64
	WithdrawalsWH  []float64
}

// TimeSeriesQuery parameterizes an explicit-bounds series request.
type TimeSeriesQuery struct {
	SiteID  int64
	Measure types.Measure
	Start   time.Time
	End     time.Time
	Level   types.AggregationLevel
	Type    types.AggregationType
}

// Client implements Service against the vendor REST API.
type Client struct {
	client  *http.Client
	baseURL string

	mu      sync.Mutex
	session types.Session
}

// Configured sets up the vendor API client.
// It registers flags for configuration.
func Configured() *Client {
	c := &Client{}
	baseURL := lflag.String("api-base-url", "https://energy.solareco.io", "Base URL of the vendor energy API")
	timeout := lflag.Duration("api-timeout", time.Minute, "Timeout for vendor API requests")
	minInterval := lflag.Duration("api-min-request-interval", 200*time.Millisecond, "Minimum spacing between vendor API requests across all pollers")

	lflag.Do(func() {
		c.baseURL = strings.TrimSuffix(*baseURL, "/")
		perSecond := float64(time.Second) / float64(*minInterval)
		c.client = common.RateLimitedHTTPClient(*timeout, perSecond, 2)
	})

	return c
}

// NewClient builds a client against the given base URL using the provided
// http client. This is primarily used for testing.
func NewClient(baseURL string, hc *http.Client) *Client {
	return &Client{client: hc, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// UseSession makes the given session's token be sent on subsequent requests.
func (c *Client) UseSession(s types.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// ClearSession forgets the current session token.
func (c *Client) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = types.Session{}
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Token
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}
	u.RawQuery = params.Encode()
	return http.NewRequestWithContext(ctx, "GET", u.String(), nil)
}

func (c *Client) newPostJSONRequest(ctx context.Context, endpoint string, data interface{}) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doRequest performs the request and decodes the JSON body into dest. Errors
// are always one of the typed taxonomy: HTTPError for non-2xx responses,
// SerializationError for undecodable bodies, GenericError otherwise. The
// client never re-authenticates on its own; a 401 surfaces to the caller.
func (c *Client) doRequest(req *http.Request, dest interface{}) error {
	isLogin := strings.HasSuffix(req.URL.Path, loginPath)
	if !isLogin {
		if tok := c.sessionToken(); tok != "" {
			req.Header.Set("X-Auth-Token", tok)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &GenericError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GenericError{Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			log.Ctx(req.Context()).DebugContext(req.Context(), "failed to decode response",
				slog.String("url", req.URL.Path),
				slog.Any("error", err),
			)
			return &SerializationError{Message: "failed to decode response", Err: err}
		}
	}
	return nil
}

type loginResult struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Authenticate logs in and returns the new session. The md5Password must be
// the lowercase hex md5 digest of the user's password; the raw password is
// never sent.
func (c *Client) Authenticate(ctx context.Context, email, md5Password string) (types.Session, error) {
	if email == "" {
		return types.Session{}, &GenericError{Message: "missing email"}
	}
	if md5Password == "" {
		return types.Session{}, &GenericError{Message: "missing password"}
	}

	req, err := c.newPostJSONRequest(ctx, loginPath, map[string]string{
		"email":    email,
		"password": md5Password,
	})
	if err != nil {
		return types.Session{}, &GenericError{Message: "failed to build login request", Err: err}
	}

	var res loginResult
	if err := c.doRequest(req, &res); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "login failed", slog.Any("error", err))
		return types.Session{}, err
	}
	if res.Token == "" {
		return types.Session{}, &SerializationError{Message: "login response missing token"}
	}

	sess := types.Session{Token: res.Token}
	if res.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, res.ExpiresAt)
		if err != nil {
			return types.Session{}, &SerializationError{Message: "invalid session expiry", Err: err}
		}
		sess.ExpiresAt = t
	}
	log.Ctx(ctx).DebugContext(ctx, "login success", slog.String("email", email))
	return sess, nil
}

// Sites lists the sites available to the authenticated user.
func (c *Client) Sites(ctx context.Context) ([]types.Site, error) {
	req, err := c.newGetRequest(ctx, "api/v1/sites", nil)
	if err != nil {
		return nil, &GenericError{Message: "failed to build sites request", Err: err}
	}
	var sites []types.Site
	if err := c.doRequest(req, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

type realtimeResult struct {
	SiteID       int64   `json:"siteId"`
	ProductionW  float64 `json:"productionPower"`
	ConsumptionW float64 `json:"consumptionPower"`
	InjectionW   float64 `json:"injectionPower"`
	WithdrawalW  float64 `json:"withdrawalPower"`
	SampleTime   string  `json:"sampleTime"`
}

// SiteRealtime returns the most recent instantaneous power sample.
func (c *Client) SiteRealtime(ctx context.Context, siteID int64) (RealtimeSample, error) {
	req, err := c.newGetRequest(ctx, fmt.Sprintf("api/v1/sites/%d/realtime", siteID), nil)
	if err != nil {
		return RealtimeSample{}, &GenericError{Message: "failed to build realtime request", Err: err}
	}

	var res realtimeResult
	if err := c.doRequest(req, &res); err != nil {
		return RealtimeSample{}, err
	}

	ts, err := time.Parse(time.RFC3339, res.SampleTime)
	if err != nil {
		return RealtimeSample{}, &SerializationError{Message: "invalid sample time", Err: err}
	}

	// meters occasionally report tiny negative flows, clamp them
	sample := RealtimeSample{
		SiteID:       res.SiteID,
		ProductionW:  clampNonNegative(res.ProductionW),
		ConsumptionW: clampNonNegative(res.ConsumptionW),
		InjectionW:   clampNonNegative(res.InjectionW),
		WithdrawalW:  clampNonNegative(res.WithdrawalW),
		SampleTime:   ts,
	}

	log.Ctx(ctx).DebugContext(ctx, "realtime sample",
		slog.Int64("siteID", siteID),
		slog.Float64("productionW", sample.ProductionW),
		slog.Float64("consumptionW", sample.ConsumptionW),
		slog.Time("sampleTime", sample.SampleTime),
	)
	return sample, nil
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

type dailyResult struct {
	Day            string    `json:"day"`
	ProductionsWH  []float64 `json:"productions"`
	ConsumptionsWH []float64 `json:"consumptions"`
	InjectionsWH   []float64 `json:"injections"`
	WithdrawalsWH  []float64 `json:"withdrawals"`
}

// SiteDaily returns the per-interval energy buckets for the given day.
func (c *Client) SiteDaily(ctx context.Context, siteID int64, day time.Time) (DailyBuckets, error) {
	params := url.Values{}
	params.Set("date", day.Format("2006-01-02"))

	req, err := c.newGetRequest(ctx, fmt.Sprintf("api/v1/sites/%d/energy/day", siteID), params)
	if err != nil {
		return DailyBuckets{}, &GenericError{Message: "failed to build daily request", Err: err}
	}

	var res dailyResult
	if err := c.doRequest(req, &res); err != nil {
		return DailyBuckets{}, err
	}

	d, err := time.ParseInLocation("2006-01-02", res.Day, day.Location())
	if err != nil {
		return DailyBuckets{}, &SerializationError{Message: "invalid day", Err: err}
	}

	return DailyBuckets{
		Day:            d,
		ProductionsWH:  res.ProductionsWH,
		ConsumptionsWH: res.ConsumptionsWH,
		InjectionsWH:   res.InjectionsWH,
		WithdrawalsWH:  res.WithdrawalsWH,
	}, nil
}

type timeSeriesResult struct {
	SiteID  int64  `json:"siteId"`
	Measure string `json:"measure"`
	Points  []struct {
		TS    string  `json:"ts"`
		Value float64 `json:"value"`
	} `json:"points"`
}

// SiteTimeSeries returns an aggregated series between explicit bounds.
func (c *Client) SiteTimeSeries(ctx context.Context, q TimeSeriesQuery) (types.TimeSeries, error) {
	params := url.Values{}
	params.Set("measure", string(q.Measure))
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))
	if q.Level != "" {
		params.Set("level", string(q.Level))
	}
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}
	return c.fetchTimeSeries(ctx, q.SiteID, params)
}

// SiteTimeSeriesAgo asks the server to resolve "value units ago until now".
func (c *Client) SiteTimeSeriesAgo(ctx context.Context, siteID int64, measure types.Measure, unit string, value int) (types.TimeSeries, error) {
	params := url.Values{}
	params.Set("measure", string(measure))
	params.Set("timeAgoUnit", unit)
	params.Set("timeAgoValue", strconv.Itoa(value))
	return c.fetchTimeSeries(ctx, siteID, params)
}

func (c *Client) fetchTimeSeries(ctx context.Context, siteID int64, params url.Values) (types.TimeSeries, error) {
	req, err := c.newGetRequest(ctx, fmt.Sprintf("api/v1/sites/%d/timeseries", siteID), params)
	if err != nil {
		return types.TimeSeries{}, &GenericError{Message: "failed to build timeseries request", Err: err}
	}

	var res timeSeriesResult
	if err := c.doRequest(req, &res); err != nil {
		return types.TimeSeries{}, err
	}

	series := types.TimeSeries{
		SiteID:  res.SiteID,
		Measure: types.Measure(res.Measure),
		Points:  make([]types.TimeSeriesPoint, 0, len(res.Points)),
	}
	for _, p := range res.Points {
		ts, err := time.Parse(time.RFC3339, p.TS)
		if err != nil {
			return types.TimeSeries{}, &SerializationError{Message: "invalid point timestamp", Err: err}
		}
		series.Points = append(series.Points, types.TimeSeriesPoint{TS: ts, Value: p.Value})
	}
	return series, nil
}

type tempoResult struct {
	Days []struct {
		Date               string  `json:"date"`
		Color              string  `json:"color"`
		PeakCentsPerKWH    float64 `json:"peakCentsPerKwh"`
		OffPeakCentsPerKWH float64 `json:"offPeakCentsPerKwh"`
	} `json:"days"`
}

// ElectricityPrice returns the current tempo tariff calendar.
func (c *Client) ElectricityPrice(ctx context.Context) (types.ElectricityPrice, error) {
	req, err := c.newGetRequest(ctx, "api/v1/prices/tempo", nil)
	if err != nil {
		return types.ElectricityPrice{}, &GenericError{Message: "failed to build price request", Err: err}
	}

	var res tempoResult
	if err := c.doRequest(req, &res); err != nil {
		return types.ElectricityPrice{}, err
	}

	price := types.ElectricityPrice{
		FetchedAt: time.Now(),
		Days:      make([]types.TempoDay, 0, len(res.Days)),
	}
	for _, d := range res.Days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return types.ElectricityPrice{}, &SerializationError{Message: "invalid tempo date", Err: err}
		}
		price.Days = append(price.Days, types.TempoDay{
			Date:               date,
			Color:              types.TempoColor(d.Color),
			PeakCentsPerKWH:    d.PeakCentsPerKWH,
			OffPeakCentsPerKWH: d.OffPeakCentsPerKWH,
		})
	}
	return price, nil
}

type weatherResult struct {
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Days        []struct {
		Date        string  `json:"date"`
		Condition   string  `json:"condition"`
		Description string  `json:"description"`
		CloudCover  int     `json:"clouds"`
		TempMinC    float64 `json:"tempMin"`
		TempMaxC    float64 `json:"tempMax"`
	} `json:"days"`
}

// DailyWeatherForecast returns the daily forecast for a postal code.
func (c *Client) DailyWeatherForecast(ctx context.Context, postalCode, countryCode, units, lang string) (types.WeatherForecast, error) {
	if postalCode == "" {
		return types.WeatherForecast{}, &GenericError{Message: "missing postal code"}
	}

	params := url.Values{}
	params.Set("postalCode", postalCode)
	params.Set("countryCode", countryCode)
	if units != "" {
		params.Set("units", units)
	}
	if lang != "" {
		params.Set("lang", lang)
	}

	req, err := c.newGetRequest(ctx, "api/v1/weather/daily", params)
	if err != nil {
		return types.WeatherForecast{}, &GenericError{Message: "failed to build weather request", Err: err}
	}

	var res weatherResult
	if err := c.doRequest(req, &res); err != nil {
		return types.WeatherForecast{}, err
	}

	forecast := types.WeatherForecast{
		FetchedAt:   time.Now(),
		PostalCode:  res.PostalCode,
		CountryCode: res.CountryCode,
		Days:        make([]types.WeatherDay, 0, len(res.Days)),
	}
	for _, d := range res.Days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return types.WeatherForecast{}, &SerializationError{Message: "invalid forecast date", Err: err}
		}
		forecast.Days = append(forecast.Days, types.WeatherDay{
			Date:        date,
			Condition:   d.Condition,
			Description: d.Description,
			CloudCover:  d.CloudCover,
			TempMinC:    d.TempMinC,
			TempMaxC:    d.TempMaxC,
		})
	}
	return forecast, nil
}
