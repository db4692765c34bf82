package weather

// CodeInfo is one entry of a provider weather-code table.
type CodeInfo struct {
	Description string
	Icon        string
}

// CodeTable resolves a provider-specific numeric weather code into a
// description and an icon symbol. Lookups never fail; unmapped codes resolve
// to the sentinel entry.
type CodeTable struct {
	entries  map[int]CodeInfo
	sentinel CodeInfo
}

// NewCodeTable builds a table over the given entries with the shared
// ("Unknown", "❓") sentinel.
func NewCodeTable(entries map[int]CodeInfo) *CodeTable {
	return &CodeTable{
		entries:  entries,
		sentinel: CodeInfo{Description: "Unknown", Icon: "❓"},
	}
}

// Lookup resolves code, falling back to the sentinel for unmapped values.
func (t *CodeTable) Lookup(code int) CodeInfo {
	if info, ok := t.entries[code]; ok {
		return info
	}
	return t.sentinel
}

// WMOCodes maps the WMO weather interpretation codes emitted by Open-Meteo.
var WMOCodes = NewCodeTable(map[int]CodeInfo{
	0:  {"Clear sky", "☀️"},
	1:  {"Mostly clear", "🌤️"},
	2:  {"Partly cloudy", "⛅"},
	3:  {"Overcast", "☁️"},
	45: {"Fog", "🌫️"},
	48: {"Freezing fog", "🌫️"},
	51: {"Light drizzle", "🌦️"},
	53: {"Moderate drizzle", "🌦️"},
	55: {"Dense drizzle", "🌧️"},
	61: {"Light rain", "🌦️"},
	63: {"Moderate rain", "🌧️"},
	65: {"Heavy rain", "🌧️"},
	71: {"Light snow", "🌨️"},
	73: {"Moderate snow", "❄️"},
	75: {"Heavy snow", "❄️"},
	95: {"Thunderstorm", "⛈️"},
})

// TomorrowCodes maps Tomorrow.io weather codes. The vendor uses its own
// 1000-series code space, not WMO.
var TomorrowCodes = NewCodeTable(map[int]CodeInfo{
	1000: {"Clear", "☀️"},
	1100: {"Mostly clear", "🌤️"},
	1101: {"Partly cloudy", "⛅"},
	1102: {"Mostly cloudy", "🌥️"},
	1001: {"Cloudy", "☁️"},
	2000: {"Fog", "🌫️"},
	2100: {"Light fog", "🌫️"},
	4000: {"Drizzle", "🌦️"},
	4200: {"Light rain", "🌦️"},
	4001: {"Rain", "🌧️"},
	4201: {"Heavy rain", "🌧️"},
	5001: {"Flurries", "🌨️"},
	5100: {"Light snow", "🌨️"},
	5000: {"Snow", "❄️"},
	5101: {"Heavy snow", "❄️"},
	6000: {"Freezing drizzle", "🌧️"},
	6200: {"Light freezing rain", "🌧️"},
	6001: {"Freezing rain", "🌧️"},
	6201: {"Heavy freezing rain", "🌧️"},
	7102: {"Light ice pellets", "🌨️"},
	7000: {"Ice pellets", "🌨️"},
	7101: {"Heavy ice pellets", "🌨️"},
	8000: {"Thunderstorm", "⛈️"},
})
