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

// accuHourlyBlocks are the only hourly forecast spans AccuWeather offers.
// A requested horizon maps to the smallest block covering it and the
// surplus hours are dropped after decoding.
var accuHourlyBlocks = []int{1, 12, 24, 72, 120}

// AccuWeatherAdapter serves the AccuWeather API. Every fetch is two-step:
// coordinates resolve to a location key first, then conditions are fetched
// for that key. Wind arrives in km/h and is reduced to m/s before the
// canonical conversions.
type AccuWeatherAdapter struct {
	name       string
	locBaseURL string
	curBaseURL string
	fcBaseURL  string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	now        func() time.Time
}

func NewAccuWeatherAdapter(client *http.Client) *AccuWeatherAdapter {
	return &AccuWeatherAdapter{
		name:       weather.ProviderAccuWeather,
		locBaseURL: "http://dataservice.accuweather.com/locations/v1/cities/geoposition/search",
		curBaseURL: "http://dataservice.accuweather.com/currentconditions/v1",
		fcBaseURL:  "http://dataservice.accuweather.com/forecasts/v1/hourly",
		httpCfg:    defaultHTTPConfig(client),
		circuit:    newBreaker(weather.ProviderAccuWeather),
		now:        time.Now,
	}
}

func (p *AccuWeatherAdapter) Name() string { return p.name }

func (p *AccuWeatherAdapter) RequiresCredential() bool { return true }

func (p *AccuWeatherAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	if credential == "" {
		return nil, missingCredential(p.name)
	}

	key, location, err := p.resolveLocation(ctx, coord, credential)
	if err != nil {
		return nil, err
	}

	if horizonHours > 0 {
		return p.fetchHourly(ctx, key, location, credential, horizonHours)
	}
	return p.fetchCurrent(ctx, key, location, credential)
}

// resolveLocation turns a coordinate into AccuWeather's location key. An
// empty key in a well-formed response means the coordinate is outside
// their coverage.
func (p *AccuWeatherAdapter) resolveLocation(ctx context.Context, coord weather.Coordinate, credential string) (string, string, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", credential)
		values.Set("q", fmt.Sprintf("%f,%f", coord.Lat, coord.Lon))
		values.Set("language", "en")

		u := fmt.Sprintf("%s?%s", p.locBaseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var payload struct {
		Key           string `json:"Key"`
		LocalizedName string `json:"LocalizedName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", malformed(p.name, resp.StatusCode, err)
	}
	if payload.Key == "" {
		return "", "", &weather.ProviderError{
			Provider: p.name,
			Kind:     weather.FailLocationNotFound,
			Message:  "no location key for this coordinate",
		}
	}

	location := payload.LocalizedName
	if location == "" {
		location = weather.UnnamedLocation
	}
	return payload.Key, location, nil
}

func (p *AccuWeatherAdapter) fetchCurrent(ctx context.Context, key, location, credential string) (weather.ForecastResult, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", credential)
		values.Set("details", "true")
		values.Set("language", "en")

		u := fmt.Sprintf("%s/%s?%s", p.curBaseURL, key, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload []struct {
		EpochTime   int64  `json:"EpochTime"`
		WeatherText string `json:"WeatherText"`
		WeatherIcon int    `json:"WeatherIcon"`
		Temperature struct {
			Metric struct {
				Value float64 `json:"Value"`
			} `json:"Metric"`
		} `json:"Temperature"`
		RealFeelTemperature *struct {
			Metric struct {
				Value float64 `json:"Value"`
			} `json:"Metric"`
		} `json:"RealFeelTemperature"`
		RelativeHumidity *float64 `json:"RelativeHumidity"`
		Wind             struct {
			Direction struct {
				Degrees float64 `json:"Degrees"`
			} `json:"Direction"`
			Speed struct {
				Metric struct {
					Value float64 `json:"Value"`
				} `json:"Metric"`
			} `json:"Speed"`
		} `json:"Wind"`
		WindGust struct {
			Speed struct {
				Metric struct {
					Value float64 `json:"Value"`
				} `json:"Metric"`
			} `json:"Speed"`
		} `json:"WindGust"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}
	if len(payload) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("conditions array is empty"))
	}

	cur := payload[0]
	ts := p.now().UTC()
	if cur.EpochTime > 0 {
		ts = time.Unix(cur.EpochTime, 0).UTC()
	}

	var feelsLike *float64
	if cur.RealFeelTemperature != nil {
		feelsLike = &cur.RealFeelTemperature.Metric.Value
	}

	kmh, knots := windFromMS(units.KmhToMS(cur.Wind.Speed.Metric.Value))

	rec := weather.WeatherRecord{
		Provider:         p.name,
		LocationName:     location,
		Time:             ts,
		TimestampLabel:   weather.LabelNow,
		Description:      common.CapitalizeFirst(cur.WeatherText),
		IconSymbol:       fmt.Sprintf("%02d", cur.WeatherIcon),
		TemperatureC:     units.Round1(cur.Temperature.Metric.Value),
		FeelsLikeC:       roundPtr(feelsLike),
		HumidityPct:      cur.RelativeHumidity,
		WindSpeedKmh:     kmh,
		WindSpeedKnots:   knots,
		WindDirectionDeg: cur.Wind.Direction.Degrees,
		GustKmh:          units.Round1(cur.WindGust.Speed.Metric.Value),
	}
	return weather.ForecastResult{rec}, nil
}

func (p *AccuWeatherAdapter) fetchHourly(ctx context.Context, key, location, credential string, horizonHours int) (weather.ForecastResult, error) {
	block := weather.SmallestBlock(accuHourlyBlocks, horizonHours)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", credential)
		values.Set("metric", "true")
		values.Set("language", "en")

		u := fmt.Sprintf("%s/%dhour/%s?%s", p.fcBaseURL, block, key, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Hourly entries carry flat metric values, unlike current conditions.
	var payload []struct {
		EpochDateTime int64  `json:"EpochDateTime"`
		WeatherIcon   int    `json:"WeatherIcon"`
		IconPhrase    string `json:"IconPhrase"`
		Temperature   struct {
			Value float64 `json:"Value"`
		} `json:"Temperature"`
		RealFeelTemperature *struct {
			Value float64 `json:"Value"`
		} `json:"RealFeelTemperature"`
		RelativeHumidity *float64 `json:"RelativeHumidity"`
		Wind             struct {
			Direction struct {
				Degrees float64 `json:"Degrees"`
			} `json:"Direction"`
			Speed struct {
				Value float64 `json:"Value"`
			} `json:"Speed"`
		} `json:"Wind"`
		WindGust struct {
			Speed struct {
				Value float64 `json:"Value"`
			} `json:"Speed"`
		} `json:"WindGust"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, malformed(p.name, resp.StatusCode, err)
	}
	if len(payload) == 0 {
		return nil, malformed(p.name, resp.StatusCode, fmt.Errorf("hourly array is empty"))
	}

	if horizonHours < len(payload) {
		payload = payload[:horizonHours]
	}

	result := make(weather.ForecastResult, 0, len(payload))
	for _, h := range payload {
		ts := p.now().UTC()
		if h.EpochDateTime > 0 {
			ts = time.Unix(h.EpochDateTime, 0).UTC()
		}

		var feelsLike *float64
		if h.RealFeelTemperature != nil {
			feelsLike = &h.RealFeelTemperature.Value
		}

		kmh, knots := windFromMS(units.KmhToMS(h.Wind.Speed.Value))

		result = append(result, weather.WeatherRecord{
			Provider:         p.name,
			LocationName:     location,
			Time:             ts,
			TimestampLabel:   weather.HourLabel(ts),
			Description:      common.CapitalizeFirst(h.IconPhrase),
			IconSymbol:       fmt.Sprintf("%02d", h.WeatherIcon),
			TemperatureC:     units.Round1(h.Temperature.Value),
			FeelsLikeC:       roundPtr(feelsLike),
			HumidityPct:      h.RelativeHumidity,
			WindSpeedKmh:     kmh,
			WindSpeedKnots:   knots,
			WindDirectionDeg: h.Wind.Direction.Degrees,
			GustKmh:          units.Round1(h.WindGust.Speed.Value),
		})
	}
	return result, nil
}
