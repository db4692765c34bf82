package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// TestOpenMeteoCurrentConditions fetches a single current sample and checks
// the unit and code normalization end to end: a 10 m/s wind must surface as
// 36.0 km/h and 19.4 knots, and WMO code 0 as a clear-sky record.
func TestOpenMeteoCurrentConditions(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"wind_speed_unit": r.URL.Query().Get("wind_speed_unit"),
			"timezone":        r.URL.Query().Get("timezone"),
			"current":         r.URL.Query().Get("current"),
			"hourly":          r.URL.Query().Get("hourly"),
		}
		fmt.Fprint(w, `{
			"current": {
				"time": "2026-03-14T10:00",
				"temperature_2m": 18.63,
				"apparent_temperature": 17.2,
				"relative_humidity_2m": 55,
				"wind_speed_10m": 10.0,
				"wind_direction_10m": 230,
				"wind_gusts_10m": 14.5,
				"weather_code": 0
			}
		}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoAdapter(srv.Client())
	p.baseURL = srv.URL
	p.httpCfg = fastHTTPConfig(srv.Client())

	result, err := p.Fetch(context.Background(), weather.Coordinate{Lat: 40.4168, Lon: -3.7038}, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result))
	}

	if gotQuery["wind_speed_unit"] != "ms" {
		t.Fatalf("expected wind_speed_unit=ms, got %q", gotQuery["wind_speed_unit"])
	}
	if gotQuery["timezone"] != "UTC" {
		t.Fatalf("expected timezone=UTC, got %q", gotQuery["timezone"])
	}
	if gotQuery["current"] == "" || gotQuery["hourly"] != "" {
		t.Fatalf("expected a current-conditions request, got current=%q hourly=%q", gotQuery["current"], gotQuery["hourly"])
	}

	rec := result[0]
	if rec.WindSpeedKmh != 36.0 {
		t.Errorf("expected 36.0 km/h, got %v", rec.WindSpeedKmh)
	}
	if rec.WindSpeedKnots != 19.4 {
		t.Errorf("expected 19.4 knots, got %v", rec.WindSpeedKnots)
	}
	// Both displays must describe the same physical speed.
	if diff := math.Abs(rec.WindSpeedKnots - rec.WindSpeedKmh*0.539957); diff >= 0.05 {
		t.Errorf("km/h and knots disagree by %v", diff)
	}
	if rec.Description != "Clear sky" || rec.IconSymbol != "☀️" {
		t.Errorf("expected clear-sky record, got %q %q", rec.Description, rec.IconSymbol)
	}
	if rec.TemperatureC != 18.6 {
		t.Errorf("expected temperature rounded to 18.6, got %v", rec.TemperatureC)
	}
	if rec.FeelsLikeC == nil || *rec.FeelsLikeC != 17.2 {
		t.Errorf("expected feels-like 17.2, got %v", rec.FeelsLikeC)
	}
	if rec.HumidityPct == nil || *rec.HumidityPct != 55 {
		t.Errorf("expected humidity 55, got %v", rec.HumidityPct)
	}
	if rec.GustKmh != 52.2 {
		t.Errorf("expected gust 52.2 km/h, got %v", rec.GustKmh)
	}
	if rec.TimestampLabel != weather.LabelNow {
		t.Errorf("expected label %q, got %q", weather.LabelNow, rec.TimestampLabel)
	}
	if !rec.Time.Equal(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", rec.Time)
	}
}

// TestOpenMeteoHourlyForecast checks that a horizon turns into an hourly
// request and every sample is labeled with its wall-clock hour.
func TestOpenMeteoHourlyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("hourly") == "" {
			t.Errorf("expected an hourly request, got %q", r.URL.RawQuery)
		}
		if got := r.URL.Query().Get("forecast_hours"); got != "6" {
			t.Errorf("expected forecast_hours=6, got %q", got)
		}
		fmt.Fprint(w, `{
			"hourly": {
				"time": ["2026-03-14T10:00","2026-03-14T11:00","2026-03-14T12:00","2026-03-14T13:00","2026-03-14T14:00","2026-03-14T15:00"],
				"temperature_2m": [10.1, 10.8, 11.4, 12.0, 12.3, 12.1],
				"apparent_temperature": [9.0, 9.6, 10.2, 10.9, 11.1, 11.0],
				"relative_humidity_2m": [70, 68, 66, 63, 61, 62],
				"wind_speed_10m": [5.0, 5.2, 5.5, 6.0, 6.1, 5.8],
				"wind_direction_10m": [180, 185, 190, 200, 205, 210],
				"wind_gusts_10m": [8.0, 8.4, 8.9, 9.5, 9.7, 9.2],
				"weather_code": [2, 2, 3, 61, 61, 63]
			}
		}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoAdapter(srv.Client())
	p.baseURL = srv.URL
	p.httpCfg = fastHTTPConfig(srv.Client())

	result, err := p.Fetch(context.Background(), weather.Coordinate{Lat: 48.8566, Lon: 2.3522}, "", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 6 {
		t.Fatalf("expected 6 records, got %d", len(result))
	}

	if result[0].TimestampLabel != "10:00" {
		t.Errorf("expected first label 10:00, got %q", result[0].TimestampLabel)
	}
	if result[3].Description != "Light rain" || result[3].IconSymbol != "🌦️" {
		t.Errorf("expected light rain at 13:00, got %q %q", result[3].Description, result[3].IconSymbol)
	}
	for i := 1; i < len(result); i++ {
		if !result[i].Time.After(result[i-1].Time) {
			t.Fatalf("records out of order at index %d", i)
		}
	}
}

// TestOpenMeteoUnknownCode falls back to the sentinel rather than failing.
func TestOpenMeteoUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current": {"time": "2026-03-14T10:00", "temperature_2m": 5, "wind_speed_10m": 1, "wind_direction_10m": 0, "wind_gusts_10m": 2, "weather_code": 86}}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoAdapter(srv.Client())
	p.baseURL = srv.URL
	p.httpCfg = fastHTTPConfig(srv.Client())

	result, err := p.Fetch(context.Background(), weather.Coordinate{Lat: 1, Lon: 1}, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result[0].Description != "Unknown" || result[0].IconSymbol != "❓" {
		t.Errorf("expected the unknown sentinel, got %q %q", result[0].Description, result[0].IconSymbol)
	}
}

// TestOpenMeteoMalformedBody maps an undecodable body to the malformed kind.
func TestOpenMeteoMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json at all`)
	}))
	defer srv.Close()

	p := NewOpenMeteoAdapter(srv.Client())
	p.baseURL = srv.URL
	p.httpCfg = fastHTTPConfig(srv.Client())

	_, err := p.Fetch(context.Background(), weather.Coordinate{Lat: 1, Lon: 1}, "", 0)
	if !weather.IsKind(err, weather.FailMalformed) {
		t.Fatalf("expected malformed kind, got %v", err)
	}
}
