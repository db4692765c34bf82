package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabiangomez1963/climaclick/internal/units"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// TomorrowAdapter serves the Tomorrow.io v4 weather API. Realtime and
// hourly forecast share one payload shape for the values block; weather
// arrives as Tomorrow's own code scheme resolved through its code table.
type TomorrowAdapter struct {
	name        string
	realtimeURL string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	now         func() time.Time
}

func NewTomorrowAdapter(client *http.Client) *TomorrowAdapter {
	return &TomorrowAdapter{
		name:        weather.ProviderTomorrow,
		realtimeURL: "https://api.tomorrow.io/v4/weather/realtime",
		forecastURL: "https://api.tomorrow.io/v4/weather/forecast",
		httpCfg:     defaultHTTPConfig(client),
		circuit:     newBreaker(weather.ProviderTomorrow),
		now:         time.Now,
	}
}

func (p *TomorrowAdapter) Name() string { return p.name }

func (p *TomorrowAdapter) RequiresCredential() bool { return true }

// tomorrowValues is the shared metric block of realtime and forecast
// responses. Humidity and apparent temperature are optional in practice.
type tomorrowValues struct {
	Temperature         float64  `json:"temperature"`
	TemperatureApparent *float64 `json:"temperatureApparent"`
	Humidity            *float64 `json:"humidity"`
	WindSpeed           float64  `json:"windSpeed"`
	WindGust            float64  `json:"windGust"`
	WindDirection       float64  `json:"windDirection"`
	WeatherCode         int      `json:"weatherCode"`
}

func (p *TomorrowAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	if credential == "" {
		return nil, missingCredential(p.name)
	}

	base := p.realtimeURL
	if horizonHours > 0 {
		base = p.forecastURL
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("location", fmt.Sprintf("%f,%f", coord.Lat, coord.Lon))
		values.Set("apikey", credential)
		values.Set("units", "metric")
		if horizonHours > 0 {
			values.Set("timesteps", "1h")
		}

		u := fmt.Sprintf("%s?%s", base, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if horizonHours > 0 {
		return p.decodeForecast(resp, horizonHours)
	}
	return p.decodeRealtime(resp)
}

func (p *TomorrowAdapter) decodeRealtime(resp *http.Response) (weather.ForecastResult, error) {
	var payload struct {
		Data struct {
			Time   string         `json:"time"`
			Values tomorrowValues `json:"values"`
		} `json:"data"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	ts := parseRFC3339(payload.Data.Time, p.now)
	rec := p.record(payload.Data.Values, payload.Location.Name, ts, weather.LabelNow)
	return weather.ForecastResult{rec}, nil
}

func (p *TomorrowAdapter) decodeForecast(resp *http.Response, horizonHours int) (weather.ForecastResult, error) {
	var payload struct {
		Timelines struct {
			Hourly []struct {
				Time   string         `json:"time"`
				Values tomorrowValues `json:"values"`
			} `json:"hourly"`
		} `json:"timelines"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	hours := payload.Timelines.Hourly
	if len(hours) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("hourly timeline is empty"))
	}
	if horizonHours < len(hours) {
		hours = hours[:horizonHours]
	}

	result := make(weather.ForecastResult, 0, len(hours))
	for _, h := range hours {
		ts := parseRFC3339(h.Time, p.now)
		result = append(result, p.record(h.Values, payload.Location.Name, ts, weather.HourLabel(ts)))
	}
	return result, nil
}

func (p *TomorrowAdapter) record(v tomorrowValues, location string, ts time.Time, label string) weather.WeatherRecord {
	if location == "" {
		location = weather.PlaceholderLocation
	}
	info := weather.TomorrowCodes.Lookup(v.WeatherCode)
	kmh, knots := windFromMS(v.WindSpeed)

	return weather.WeatherRecord{
		Provider:         p.name,
		LocationName:     location,
		Time:             ts,
		TimestampLabel:   label,
		Description:      info.Description,
		IconSymbol:       info.Icon,
		TemperatureC:     units.Round1(v.Temperature),
		FeelsLikeC:       roundPtr(v.TemperatureApparent),
		HumidityPct:      v.Humidity,
		WindSpeedKmh:     kmh,
		WindSpeedKnots:   knots,
		WindDirectionDeg: v.WindDirection,
		GustKmh:          units.Round1(units.ToKmh(v.WindGust)),
	}
}

func parseRFC3339(s string, fallback func() time.Time) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback().UTC()
	}
	return ts.UTC()
}
