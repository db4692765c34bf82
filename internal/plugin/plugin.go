// Package plugin implements the click-to-weather workflow on top of a map
// host: toolbar wiring, provider configuration, the one-fetch-at-a-time
// click handler, and persistence of results as a map layer.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fabiangomez1963/climaclick/internal/config"
	"github.com/fabiangomez1963/climaclick/internal/legend"
	"github.com/fabiangomez1963/climaclick/internal/store"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// MessageLevel grades host messages.
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelWarning
	LevelError
)

// Host is the surface a map application offers the plugin. Implementations
// must tolerate calls from the goroutine a fetch runs on.
type Host interface {
	// ShowMessage displays a transient message bar entry.
	ShowMessage(title, text string, level MessageLevel, durationSec int)
	// ShowPopup displays rendered HTML anchored at the active point.
	ShowPopup(title, html string)
	// AddToolbarAction registers a toolbar button and returns its remover.
	AddToolbarAction(label string, onTrigger func()) (remove func())
}

// ErrFetchInFlight is returned when a click arrives while a previous fetch
// is still running.
var ErrFetchInFlight = errors.New("a weather fetch is already in progress")

const messageTitle = "Weather by click"

// layerFields is the attribute schema of the persisted click layer.
var layerFields = []string{
	"provider", "location", "time", "label", "description", "icon",
	"temperature_c", "feels_like_c", "humidity_pct",
	"wind_kmh", "wind_knots", "wind_dir_deg", "gust_kmh",
}

type lastClick struct {
	lat, lon     float64
	horizonHours int
}

// Plugin owns the plugin lifecycle and the click workflow.
type Plugin struct {
	host     Host
	service  *weather.Service
	registry *weather.Registry
	settings *config.ProviderSettings
	layers   store.LayerStore

	layerName string
	layer     *store.LayerHandle

	// mu serializes fetches; a click while locked is rejected, not queued.
	mu   sync.Mutex
	last *lastClick

	removals []func()
}

func New(host Host, service *weather.Service, registry *weather.Registry, settings *config.ProviderSettings, layers store.LayerStore, layerName string) *Plugin {
	p := &Plugin{
		host:      host,
		service:   service,
		registry:  registry,
		settings:  settings,
		layers:    layers,
		layerName: layerName,
	}
	if _, err := p.ensureLayer(); err != nil {
		log.Printf("INFO: click layer unavailable at startup: %v", err)
	}
	return p
}

// InitGUI installs the toolbar actions on the host.
func (p *Plugin) InitGUI() {
	p.removals = append(p.removals,
		p.host.AddToolbarAction("Weather by click", p.Activate),
		p.host.AddToolbarAction("Configure provider", p.ShowConfiguration),
	)
}

// Unload removes everything InitGUI installed.
func (p *Plugin) Unload() {
	for _, remove := range p.removals {
		remove()
	}
	p.removals = nil
}

// Activate arms the click tool. If the selected provider needs a credential
// that is not configured yet, the user is warned up front instead of after
// the first click.
func (p *Plugin) Activate() {
	cfg := p.currentConfig()
	if cfg.RequiresCredential && cfg.Credential == "" {
		p.host.ShowMessage(messageTitle,
			legend.FailureMessage(cfg.Provider, &weather.ProviderError{
				Provider: cfg.Provider,
				Kind:     weather.FailMissingCredential,
			}),
			LevelWarning, 7)
		return
	}
	p.host.ShowMessage(messageTitle,
		fmt.Sprintf("Click the map to fetch weather from %s.", legend.DisplayName(cfg.Provider)),
		LevelInfo, 5)
}

// ShowConfiguration summarizes the active provider selection.
func (p *Plugin) ShowConfiguration() {
	cfg := p.currentConfig()
	state := "no API key needed"
	if cfg.RequiresCredential {
		state = "API key configured"
		if cfg.Credential == "" {
			state = "API key missing"
		}
	}
	p.host.ShowMessage(messageTitle,
		fmt.Sprintf("Active provider: %s (%s).", legend.DisplayName(cfg.Provider), state),
		LevelInfo, 5)
}

// Configure selects a provider and stores its credential. The provider must
// be registered; the credential may be empty for providers that need none.
func (p *Plugin) Configure(provider, credential string) error {
	adapter, err := p.registry.Lookup(provider)
	if err != nil {
		return err
	}
	if err := p.settings.SetProvider(provider); err != nil {
		return fmt.Errorf("store provider selection: %w", err)
	}
	if credential != "" {
		if err := p.settings.SetCredential(provider, credential); err != nil {
			return fmt.Errorf("store credential: %w", err)
		}
	}
	if adapter.RequiresCredential() && p.settings.CredentialFor(provider) == "" {
		p.host.ShowMessage(messageTitle,
			fmt.Sprintf("%s requires an API key. Configure one first.", legend.DisplayName(provider)),
			LevelWarning, 7)
	}
	return nil
}

// HandleClick fetches weather for the clicked coordinate using the active
// provider. Only one fetch runs at a time; a click during a running fetch
// returns ErrFetchInFlight. On success the result is shown as a popup and
// appended to the click layer.
func (p *Plugin) HandleClick(ctx context.Context, lat, lon float64, horizonHours int) (weather.ForecastResult, error) {
	if !p.mu.TryLock() {
		p.host.ShowMessage(messageTitle, "A weather fetch is already in progress.", LevelWarning, 3)
		return nil, ErrFetchInFlight
	}
	defer p.mu.Unlock()

	result, err := p.fetch(ctx, lat, lon, horizonHours)
	if err != nil {
		return nil, err
	}

	p.last = &lastClick{lat: lat, lon: lon, horizonHours: horizonHours}
	p.host.ShowPopup(messageTitle, legend.RenderForecastHTML(result))
	p.persist(result, lat, lon)
	return result, nil
}

// Refresh re-fetches the last clicked point, for the watch scheduler. It is
// a no-op before the first click and skips silently when a fetch is running.
func (p *Plugin) Refresh(ctx context.Context) {
	if !p.mu.TryLock() {
		return
	}
	defer p.mu.Unlock()

	if p.last == nil {
		return
	}

	result, err := p.fetch(ctx, p.last.lat, p.last.lon, p.last.horizonHours)
	if err != nil {
		return
	}
	p.host.ShowPopup(messageTitle, legend.RenderForecastHTML(result))
	p.persist(result, p.last.lat, p.last.lon)
}

// fetch resolves the active provider config and runs the service call.
// Failures surface on the host message bar as well as the error return.
func (p *Plugin) fetch(ctx context.Context, lat, lon float64, horizonHours int) (weather.ForecastResult, error) {
	cfg := p.currentConfig()

	req := weather.ForecastRequest{
		Coordinate:   weather.Coordinate{Lat: lat, Lon: lon},
		Provider:     cfg.Provider,
		Credential:   cfg.Credential,
		HorizonHours: horizonHours,
	}

	result, err := p.service.GetWeather(ctx, req)
	if err != nil {
		p.host.ShowMessage(messageTitle, legend.FailureMessage(cfg.Provider, err), LevelError, 7)
		return nil, err
	}
	return result, nil
}

// currentConfig snapshots the provider selection and credential. The copy
// is what the fetch uses; settings edited mid-fetch apply to the next one.
func (p *Plugin) currentConfig() config.ProviderConfig {
	provider := p.settings.Current()
	cfg := config.ProviderConfig{
		Provider:   provider,
		Credential: p.settings.CredentialFor(provider),
	}
	if adapter, err := p.registry.Lookup(provider); err == nil {
		cfg.RequiresCredential = adapter.RequiresCredential()
	}
	return cfg
}

// persist appends each record as a feature on the click layer. Layer
// trouble must never fail the fetch, so errors only warn.
func (p *Plugin) persist(result weather.ForecastResult, lat, lon float64) {
	handle, err := p.ensureLayer()
	if err != nil {
		p.host.ShowMessage(messageTitle,
			fmt.Sprintf("Result not saved to layer: %v", err), LevelWarning, 5)
		return
	}

	for _, rec := range result {
		if err := p.layers.AppendFeature(handle, store.NewPoint(lat, lon), recordAttributes(rec)); err != nil {
			p.host.ShowMessage(messageTitle,
				fmt.Sprintf("Result not saved to layer: %v", err), LevelWarning, 5)
			return
		}
	}
}

func (p *Plugin) ensureLayer() (*store.LayerHandle, error) {
	if p.layer != nil {
		return p.layer, nil
	}
	handle, err := p.layers.EnsureLayer(store.LayerSchema{Name: p.layerName, Fields: layerFields})
	if err != nil {
		return nil, err
	}
	p.layer = handle
	return handle, nil
}

func recordAttributes(rec weather.WeatherRecord) map[string]any {
	attrs := map[string]any{
		"provider":      rec.Provider,
		"location":      rec.LocationName,
		"time":          rec.Time.Format(time.RFC3339),
		"label":         rec.TimestampLabel,
		"description":   rec.Description,
		"icon":          rec.IconSymbol,
		"temperature_c": rec.TemperatureC,
		"wind_kmh":      rec.WindSpeedKmh,
		"wind_knots":    rec.WindSpeedKnots,
		"wind_dir_deg":  rec.WindDirectionDeg,
		"gust_kmh":      rec.GustKmh,
	}
	if rec.FeelsLikeC != nil {
		attrs["feels_like_c"] = *rec.FeelsLikeC
	}
	if rec.HumidityPct != nil {
		attrs["humidity_pct"] = *rec.HumidityPct
	}
	return attrs
}

// ConfigView is the configuration surface exposed to hosts and the HTTP
// API. Credentials never leave the settings store; only their presence does.
type ConfigView struct {
	Provider           string `json:"provider"`
	DisplayName        string `json:"displayName"`
	RequiresCredential bool   `json:"requiresCredential"`
	HasCredential      bool   `json:"hasCredential"`
}

// Configuration reports the active provider selection.
func (p *Plugin) Configuration() ConfigView {
	cfg := p.currentConfig()
	return ConfigView{
		Provider:           cfg.Provider,
		DisplayName:        legend.DisplayName(cfg.Provider),
		RequiresCredential: cfg.RequiresCredential,
		HasCredential:      cfg.Credential != "",
	}
}

// Providers lists every registered provider with its credential state.
func (p *Plugin) Providers() []ConfigView {
	names := p.registry.Names()
	views := make([]ConfigView, 0, len(names))
	for _, name := range names {
		view := ConfigView{
			Provider:      name,
			DisplayName:   legend.DisplayName(name),
			HasCredential: p.settings.CredentialFor(name) != "",
		}
		if adapter, err := p.registry.Lookup(name); err == nil {
			view.RequiresCredential = adapter.RequiresCredential()
		}
		views = append(views, view)
	}
	return views
}
