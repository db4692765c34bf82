package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabiangomez1963/climaclick/internal/units"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// openMeteoFields is the field list requested for both current conditions
// and hourly forecasts.
const openMeteoFields = "temperature_2m,apparent_temperature,relative_humidity_2m," +
	"wind_speed_10m,wind_direction_10m,wind_gusts_10m,weather_code"

// OpenMeteoAdapter serves the Open-Meteo forecast API. No credential is
// needed; weather arrives as WMO codes resolved through the code table, and
// wind is requested in m/s so km/h and knots both derive from the same
// canonical reading.
type OpenMeteoAdapter struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenMeteoAdapter(client *http.Client) *OpenMeteoAdapter {
	return &OpenMeteoAdapter{
		name:    weather.ProviderOpenMeteo,
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker(weather.ProviderOpenMeteo),
		now:     time.Now,
	}
}

func (p *OpenMeteoAdapter) Name() string { return p.name }

func (p *OpenMeteoAdapter) RequiresCredential() bool { return false }

func (p *OpenMeteoAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", coord.Lat))
		values.Set("longitude", fmt.Sprintf("%f", coord.Lon))
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")
		if horizonHours > 0 {
			values.Set("hourly", openMeteoFields)
			values.Set("forecast_hours", strconv.Itoa(horizonHours))
		} else {
			values.Set("current", openMeteoFields)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if horizonHours > 0 {
		return p.decodeHourly(resp, horizonHours)
	}
	return p.decodeCurrent(resp)
}

func (p *OpenMeteoAdapter) decodeCurrent(resp *http.Response) (weather.ForecastResult, error) {
	var payload struct {
		Current struct {
			Time          string   `json:"time"`
			Temperature   float64  `json:"temperature_2m"`
			FeelsLike     *float64 `json:"apparent_temperature"`
			Humidity      *float64 `json:"relative_humidity_2m"`
			WindSpeed     float64  `json:"wind_speed_10m"`
			WindDirection float64  `json:"wind_direction_10m"`
			WindGusts     float64  `json:"wind_gusts_10m"`
			WeatherCode   int      `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	cur := payload.Current
	ts := parseOpenMeteoTime(cur.Time, p.now)
	info := weather.WMOCodes.Lookup(cur.WeatherCode)
	kmh, knots := windFromMS(cur.WindSpeed)

	rec := weather.WeatherRecord{
		Provider:         p.name,
		LocationName:     weather.PlaceholderLocation,
		Time:             ts,
		TimestampLabel:   weather.LabelNow,
		Description:      info.Description,
		IconSymbol:       info.Icon,
		TemperatureC:     units.Round1(cur.Temperature),
		FeelsLikeC:       roundPtr(cur.FeelsLike),
		HumidityPct:      cur.Humidity,
		WindSpeedKmh:     kmh,
		WindSpeedKnots:   knots,
		WindDirectionDeg: cur.WindDirection,
		GustKmh:          units.Round1(units.ToKmh(cur.WindGusts)),
	}
	return weather.ForecastResult{rec}, nil
}

func (p *OpenMeteoAdapter) decodeHourly(resp *http.Response, horizonHours int) (weather.ForecastResult, error) {
	var payload struct {
		Hourly struct {
			Time          []string   `json:"time"`
			Temperature   []float64  `json:"temperature_2m"`
			FeelsLike     []*float64 `json:"apparent_temperature"`
			Humidity      []*float64 `json:"relative_humidity_2m"`
			WindSpeed     []float64  `json:"wind_speed_10m"`
			WindDirection []float64  `json:"wind_direction_10m"`
			WindGusts     []float64  `json:"wind_gusts_10m"`
			WeatherCode   []int      `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	h := payload.Hourly
	if len(h.Time) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("hourly payload is empty"))
	}

	n := len(h.Time)
	if horizonHours < n {
		n = horizonHours
	}

	result := make(weather.ForecastResult, 0, n)
	for i := 0; i < n; i++ {
		ts := parseOpenMeteoTime(h.Time[i], p.now)
		info := weather.WMOCodes.Lookup(intAt(h.WeatherCode, i))
		kmh, knots := windFromMS(floatAt(h.WindSpeed, i))

		result = append(result, weather.WeatherRecord{
			Provider:         p.name,
			LocationName:     weather.PlaceholderLocation,
			Time:             ts,
			TimestampLabel:   weather.HourLabel(ts),
			Description:      info.Description,
			IconSymbol:       info.Icon,
			TemperatureC:     units.Round1(floatAt(h.Temperature, i)),
			FeelsLikeC:       roundPtr(ptrAt(h.FeelsLike, i)),
			HumidityPct:      ptrAt(h.Humidity, i),
			WindSpeedKmh:     kmh,
			WindSpeedKnots:   knots,
			WindDirectionDeg: floatAt(h.WindDirection, i),
			GustKmh:          units.Round1(units.ToKmh(floatAt(h.WindGusts, i))),
		})
	}
	return result, nil
}

// parseOpenMeteoTime parses Open-Meteo's ISO times, which carry no zone
// suffix; with timezone=UTC in the request they are UTC wall clock.
func parseOpenMeteoTime(s string, fallback func() time.Time) time.Time {
	ts, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		return fallback().UTC()
	}
	return ts
}

// The hourly arrays are parallel; a truncated or ragged payload must not
// panic, so reads past an array's end fall back to a safe default.

func floatAt(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func intAt(xs []int, i int) int {
	if i < len(xs) {
		return xs[i]
	}
	return -1
}

func ptrAt(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}
