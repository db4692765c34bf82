package providers

import (
	"net/http"

	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// DefaultRegistry returns a registry with every supported provider
// registered, all sharing the given HTTP client.
func DefaultRegistry(client *http.Client) *weather.Registry {
	r := weather.NewRegistry()
	r.Register(NewOpenWeatherMapAdapter(client))
	r.Register(NewOpenMeteoAdapter(client))
	r.Register(NewTomorrowAdapter(client))
	r.Register(NewAccuWeatherAdapter(client))
	r.Register(NewVisualCrossingAdapter(client))
	return r
}
