// Package legend renders weather records for map hosts: popup HTML, icon
// display rules, provider display names, and user-facing failure messages.
package legend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fabiangomez1963/climaclick/internal/common"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// forecastDescriptionRunes caps the description on compact per-hour lines.
const forecastDescriptionRunes = 40

// openWeatherIcons maps OpenWeatherMap icon codes to emoji. Codes outside
// the map fall through to the raw code.
var openWeatherIcons = map[string]string{
	"01d": "☀️", "01n": "🌙",
	"02d": "🌤️", "02n": "🌤️",
	"03d": "🌥️", "03n": "🌥️",
	"04d": "☁️", "04n": "☁️",
	"09d": "🌧️", "09n": "🌧️",
	"10d": "🌦️", "10n": "🌧️",
	"11d": "⛈️", "11n": "⛈️",
	"13d": "❄️", "13n": "❄️",
	"50d": "🌫️", "50n": "🌫️",
}

// providerLabels holds the branded spellings title-casing cannot produce.
var providerLabels = map[string]string{
	weather.ProviderOpenWeatherMap: "OpenWeatherMap",
	weather.ProviderOpenMeteo:      "Open-Meteo",
	weather.ProviderTomorrow:       "Tomorrow.io",
	weather.ProviderAccuWeather:    "AccuWeather",
	weather.ProviderVisualCrossing: "Visual Crossing",
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the user-facing name of a provider id.
func DisplayName(provider string) string {
	if label, ok := providerLabels[provider]; ok {
		return label
	}
	return titleCaser.String(provider)
}

// IconDisplay renders a record's icon symbol for display. OpenWeatherMap
// codes become emoji, AccuWeather's bare icon numbers are prefixed so they
// read as identifiers, and everything else is shown as delivered.
func IconDisplay(rec weather.WeatherRecord) string {
	switch rec.Provider {
	case weather.ProviderOpenWeatherMap:
		if emoji, ok := openWeatherIcons[rec.IconSymbol]; ok {
			return emoji
		}
		return rec.IconSymbol
	case weather.ProviderAccuWeather:
		return "ID:" + rec.IconSymbol
	default:
		return rec.IconSymbol
	}
}

// RenderHTML renders one record as popup HTML.
func RenderHTML(rec weather.WeatherRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s %s</b><br>", IconDisplay(rec), rec.LocationName)
	fmt.Fprintf(&b, "<i>%s (%s)</i><hr>", rec.Description, DisplayName(rec.Provider))

	fmt.Fprintf(&b, "Temperature: <b>%.1f °C</b>", rec.TemperatureC)
	if rec.FeelsLikeC != nil {
		fmt.Fprintf(&b, " (feels like %.1f °C)", *rec.FeelsLikeC)
	}
	b.WriteString("<br>")

	if rec.HumidityPct != nil {
		fmt.Fprintf(&b, "Humidity: %.0f %%<br>", *rec.HumidityPct)
	} else {
		b.WriteString("Humidity: n/a<br>")
	}

	fmt.Fprintf(&b, "Wind: %.1f km/h (%.1f knots)<br>", rec.WindSpeedKmh, rec.WindSpeedKnots)
	fmt.Fprintf(&b, "Direction: %.0f °<br>", rec.WindDirectionDeg)
	fmt.Fprintf(&b, "Gust: %.1f km/h", rec.GustKmh)

	return b.String()
}

// RenderForecastHTML renders a fetch result. A single record renders as the
// plain popup; a forecast gets a header line and one compact line per hour.
func RenderForecastHTML(result weather.ForecastResult) string {
	if len(result) == 0 {
		return ""
	}
	if len(result) == 1 {
		return RenderHTML(result[0])
	}

	first := result[0]
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>: %d-hour forecast (%s)<hr>",
		first.LocationName, len(result), DisplayName(first.Provider))

	for _, rec := range result {
		fmt.Fprintf(&b, "%s %s %s <b>%.1f °C</b>, wind %.1f km/h<br>",
			rec.TimestampLabel, IconDisplay(rec),
			common.Truncate(rec.Description, forecastDescriptionRunes),
			rec.TemperatureC, rec.WindSpeedKmh)
	}
	return b.String()
}

// RenderLegendHTML renders the provider list and the OpenWeatherMap icon
// mapping as an HTML fragment for host legend panels.
func RenderLegendHTML(providers []string) string {
	var b strings.Builder

	b.WriteString("<h3>Providers</h3><ul>")
	for _, id := range providers {
		fmt.Fprintf(&b, "<li>%s</li>", DisplayName(id))
	}
	b.WriteString("</ul>")

	codes := make([]string, 0, len(openWeatherIcons))
	for code := range openWeatherIcons {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	b.WriteString("<h3>Icons</h3><ul>")
	for _, code := range codes {
		fmt.Fprintf(&b, "<li>%s %s</li>", openWeatherIcons[code], code)
	}
	b.WriteString("</ul>")

	return b.String()
}

// FailureMessage maps a fetch failure to the message shown to the user.
func FailureMessage(provider string, err error) string {
	name := DisplayName(provider)

	var provErr *weather.ProviderError
	if !errors.As(err, &provErr) {
		return fmt.Sprintf("%s: request failed: %v", name, err)
	}

	switch provErr.Kind {
	case weather.FailMissingCredential:
		return fmt.Sprintf("%s requires an API key. Configure one first.", name)
	case weather.FailTimeout, weather.FailConnection:
		return fmt.Sprintf("%s: network error, try again later.", name)
	case weather.FailLocationNotFound:
		return fmt.Sprintf("%s: no data for this location.", name)
	case weather.FailMalformed:
		return fmt.Sprintf("%s returned an unreadable response.", name)
	case weather.FailHTTP:
		if provErr.Message != "" {
			return fmt.Sprintf("%s: %s (HTTP %d)", name, provErr.Message, provErr.Status)
		}
		return fmt.Sprintf("%s: request failed with HTTP %d.", name, provErr.Status)
	default:
		return fmt.Sprintf("%s: request failed: %v", name, err)
	}
}
