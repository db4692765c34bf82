package weather

import (
	"time"
)

// Supported provider ids.
const (
	ProviderOpenWeatherMap = "openweathermap"
	ProviderOpenMeteo      = "openmeteo"
	ProviderTomorrow       = "tomorrowio"
	ProviderAccuWeather    = "accuweather"
	ProviderVisualCrossing = "visualcrossing"
)

// MaxHorizonHours caps forecast requests at the longest hourly span any
// provider serves (the 120 hour AccuWeather block).
const MaxHorizonHours = 120

// Coordinate is a geographic point in WGS84 degrees. Reprojection from the
// host's working CRS happens before a coordinate reaches this package.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// ForecastRequest describes one weather fetch: where, from which provider,
// with which credential, and how many hourly samples. HorizonHours zero means
// current conditions. Credentials travel inside the request so configuration
// changes cannot affect a fetch already dispatched.
type ForecastRequest struct {
	Coordinate   Coordinate `json:"coordinate"`
	Provider     string     `json:"provider" validate:"required"`
	Credential   string     `json:"-"`
	HorizonHours int        `json:"horizonHours" validate:"gte=0,lte=120"`
}

// WeatherRecord is the unified output schema every adapter fills. Humidity
// and feels-like stay nil when the provider omits them so absence renders
// distinctly from zero; every other numeric field defaults to zero.
type WeatherRecord struct {
	Provider       string    `json:"provider"`
	LocationName   string    `json:"locationName"`
	Time           time.Time `json:"time"`
	TimestampLabel string    `json:"timestampLabel"`
	Description    string    `json:"description"`
	IconSymbol     string    `json:"iconSymbol"`

	TemperatureC     float64  `json:"temperatureC"`
	FeelsLikeC       *float64 `json:"feelsLikeC,omitempty"`
	HumidityPct      *float64 `json:"humidityPct,omitempty"`
	WindSpeedKmh     float64  `json:"windSpeedKmh"`
	WindSpeedKnots   float64  `json:"windSpeedKnots"`
	WindDirectionDeg float64  `json:"windDirectionDeg"`
	GustKmh          float64  `json:"gustKmh"`
}

// ForecastResult is a chronological sequence of records, earliest first:
// length one for current conditions, length HorizonHours for forecasts.
type ForecastResult []WeatherRecord

// LabelNow is the timestamp label of a current-conditions record.
const LabelNow = "Now"

// Location name fallbacks. UnnamedLocation is used when a provider that
// normally names places returns none; PlaceholderLocation is used by
// providers that never name places.
const (
	UnnamedLocation     = "Unnamed location"
	PlaceholderLocation = "Geographic location"
)

// HourLabel formats a forecast sample time as its hour-of-day label.
func HourLabel(t time.Time) string {
	return t.Format("15:04")
}
