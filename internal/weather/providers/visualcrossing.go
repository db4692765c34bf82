package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabiangomez1963/climaclick/internal/common"
	"github.com/fabiangomez1963/climaclick/internal/units"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// vcHourConditions is the shared shape of Visual Crossing current and
// hourly blocks. Wind arrives in km/h under the metric unit group.
type vcHourConditions struct {
	DatetimeEpoch int64    `json:"datetimeEpoch"`
	Conditions    string   `json:"conditions"`
	Icon          string   `json:"icon"`
	Temp          float64  `json:"temp"`
	FeelsLike     *float64 `json:"feelslike"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     float64  `json:"windspeed"`
	WindDir       float64  `json:"winddir"`
	WindGust      float64  `json:"windgust"`
}

// VisualCrossingAdapter serves the Visual Crossing timeline API. The
// timeline endpoint is addressed by calendar dates, so a forecast horizon
// maps to the minimal date span covering it and the day-nested hours are
// flattened and clipped back to the requested window.
type VisualCrossingAdapter struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewVisualCrossingAdapter(client *http.Client) *VisualCrossingAdapter {
	return &VisualCrossingAdapter{
		name:    weather.ProviderVisualCrossing,
		baseURL: "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker(weather.ProviderVisualCrossing),
		now:     time.Now,
	}
}

func (p *VisualCrossingAdapter) Name() string { return p.name }

func (p *VisualCrossingAdapter) RequiresCredential() bool { return true }

func (p *VisualCrossingAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	if credential == "" {
		return nil, missingCredential(p.name)
	}

	if horizonHours > 0 {
		return p.fetchHourly(ctx, coord, credential, horizonHours)
	}
	return p.fetchCurrent(ctx, coord, credential)
}

func (p *VisualCrossingAdapter) fetchCurrent(ctx context.Context, coord weather.Coordinate, credential string) (weather.ForecastResult, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", credential)
		values.Set("unitGroup", "metric")
		values.Set("include", "current")
		values.Set("lang", "en")

		u := fmt.Sprintf("%s/%f,%f?%s", p.baseURL, coord.Lat, coord.Lon, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		ResolvedAddress   string           `json:"resolvedAddress"`
		CurrentConditions vcHourConditions `json:"currentConditions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	ts := p.now().UTC()
	if payload.CurrentConditions.DatetimeEpoch > 0 {
		ts = time.Unix(payload.CurrentConditions.DatetimeEpoch, 0).UTC()
	}

	rec := p.record(payload.CurrentConditions, payload.ResolvedAddress, ts, weather.LabelNow)
	return weather.ForecastResult{rec}, nil
}

func (p *VisualCrossingAdapter) fetchHourly(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	start, end := weather.HourWindow(p.now().UTC(), horizonHours)
	dates := weather.DateSpan(start, end)
	first := dates[0].Format("2006-01-02")
	last := dates[len(dates)-1].Format("2006-01-02")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", credential)
		values.Set("unitGroup", "metric")
		values.Set("include", "hours")
		values.Set("lang", "en")
		// The timeline resolves date paths in the location's local zone;
		// pin them to UTC so the returned days cover the clip window.
		values.Set("timezone", "Z")

		u := fmt.Sprintf("%s/%f,%f/%s/%s?%s", p.baseURL, coord.Lat, coord.Lon, first, last, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		ResolvedAddress string `json:"resolvedAddress"`
		Days            []struct {
			Hours []vcHourConditions `json:"hours"`
		} `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}
	if len(payload.Days) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("days payload is empty"))
	}

	var all weather.ForecastResult
	for _, day := range payload.Days {
		for _, hour := range day.Hours {
			if hour.DatetimeEpoch == 0 {
				continue
			}
			ts := time.Unix(hour.DatetimeEpoch, 0).UTC()
			all = append(all, p.record(hour, payload.ResolvedAddress, ts, weather.HourLabel(ts)))
		}
	}

	result := weather.ClipToWindow(all, start, end, horizonHours)
	if len(result) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("no hours inside the requested window"))
	}
	return result, nil
}

func (p *VisualCrossingAdapter) record(c vcHourConditions, location string, ts time.Time, label string) weather.WeatherRecord {
	if location == "" {
		location = weather.PlaceholderLocation
	}
	kmh, knots := windFromMS(units.KmhToMS(c.WindSpeed))

	return weather.WeatherRecord{
		Provider:         p.name,
		LocationName:     location,
		Time:             ts,
		TimestampLabel:   label,
		Description:      common.CapitalizeFirst(c.Conditions),
		IconSymbol:       c.Icon,
		TemperatureC:     units.Round1(c.Temp),
		FeelsLikeC:       roundPtr(c.FeelsLike),
		HumidityPct:      c.Humidity,
		WindSpeedKmh:     kmh,
		WindSpeedKnots:   knots,
		WindDirectionDeg: c.WindDir,
		GustKmh:          units.Round1(c.WindGust),
	}
}
