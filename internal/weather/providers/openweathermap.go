package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabiangomez1963/climaclick/internal/common"
	"github.com/fabiangomez1963/climaclick/internal/units"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// OpenWeatherMapAdapter serves the OpenWeatherMap current-weather API.
// The free endpoint has no hourly product, so a forecast horizon collapses
// to the single current sample.
type OpenWeatherMapAdapter struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenWeatherMapAdapter(client *http.Client) *OpenWeatherMapAdapter {
	return &OpenWeatherMapAdapter{
		name:    weather.ProviderOpenWeatherMap,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker(weather.ProviderOpenWeatherMap),
		now:     time.Now,
	}
}

func (p *OpenWeatherMapAdapter) Name() string { return p.name }

func (p *OpenWeatherMapAdapter) RequiresCredential() bool { return true }

func (p *OpenWeatherMapAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	if credential == "" {
		return nil, missingCredential(p.name)
	}
	if horizonHours > 0 {
		log.Printf("INFO: %s serves current conditions only; horizon of %dh ignored", p.name, horizonHours)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", coord.Lat))
		values.Set("lon", fmt.Sprintf("%f", coord.Lon))
		values.Set("appid", credential)
		values.Set("units", "metric")
		values.Set("lang", "en")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt   int64  `json:"dt"`
		Name string `json:"name"`
		Main struct {
			Temp      float64  `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
			Humidity  *float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
			Gust  float64 `json:"gust"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}

	description := ""
	icon := ""
	if len(payload.Weather) > 0 {
		description = common.CapitalizeFirst(payload.Weather[0].Description)
		icon = payload.Weather[0].Icon
	}

	location := payload.Name
	if location == "" {
		location = weather.UnnamedLocation
	}

	ts := p.now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	// Metric units put wind in m/s already.
	kmh, knots := windFromMS(payload.Wind.Speed)

	rec := weather.WeatherRecord{
		Provider:         p.name,
		LocationName:     location,
		Time:             ts,
		TimestampLabel:   weather.LabelNow,
		Description:      description,
		IconSymbol:       icon,
		TemperatureC:     units.Round1(payload.Main.Temp),
		FeelsLikeC:       roundPtr(payload.Main.FeelsLike),
		HumidityPct:      payload.Main.Humidity,
		WindSpeedKmh:     kmh,
		WindSpeedKnots:   knots,
		WindDirectionDeg: payload.Wind.Deg,
		GustKmh:          units.Round1(units.ToKmh(payload.Wind.Gust)),
	}
	return weather.ForecastResult{rec}, nil
}
