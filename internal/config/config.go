package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fabiangomez1963/climaclick/internal/store"
)

// Settings keys. The provider selection and each provider credential live
// under their own key so hosts can manage them independently.
const (
	KeyProviderID   = "climaclick/provider_id"
	keyCredentialF  = "climaclick/api_key_%s"
	DefaultProvider = "openweathermap"
)

type AppConfig struct {
	Port string

	// HTTPTimeout caps a single outbound HTTP exchange; FetchBudget caps a
	// whole fetch including retries.
	HTTPTimeout time.Duration
	FetchBudget time.Duration

	// SettingsPath is the JSON settings file; empty keeps settings in memory.
	SettingsPath string

	// Layer persistence.
	LayerDir  string
	LayerName string

	// WatchInterval re-fetches the last clicked point periodically; 0
	// disables the watcher.
	WatchInterval time.Duration

	// Outbound rate limiting per provider; 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// GeocoderAPIKey unlocks the place-name lookup endpoint.
	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	timeout, err := getenvDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	budget, err := getenvDuration("FETCH_BUDGET", 75*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.FetchBudget = budget

	cfg.SettingsPath = os.Getenv("SETTINGS_PATH")
	cfg.LayerDir = getenvDefault("LAYER_DIR", "layers")
	cfg.LayerName = getenvDefault("LAYER_NAME", "Weather Click")

	watch, err := getenvDuration("WATCH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	cfg.WatchInterval = watch

	cfg.RateLimitRPS = getenvFloat("RATE_LIMIT_RPS", 0)
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", 1)

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	return cfg, nil
}

// ProviderConfig is the active selection resolved from settings at dispatch
// time. The credential is a copy; later settings edits do not affect a
// fetch already underway.
type ProviderConfig struct {
	Provider           string
	Credential         string
	RequiresCredential bool
}

// ProviderSettings reads and writes the provider selection and per-provider
// credentials on top of a SettingsStore.
type ProviderSettings struct {
	store store.SettingsStore
}

func NewProviderSettings(s store.SettingsStore) *ProviderSettings {
	return &ProviderSettings{store: s}
}

// Current returns the selected provider id, falling back to the default
// when nothing was chosen yet.
func (p *ProviderSettings) Current() string {
	if id, ok := p.store.Get(KeyProviderID); ok && id != "" {
		return id
	}
	return DefaultProvider
}

func (p *ProviderSettings) SetProvider(id string) error {
	return p.store.Set(KeyProviderID, id)
}

// CredentialFor returns the stored API key of the given provider; missing
// keys read as the empty string.
func (p *ProviderSettings) CredentialFor(provider string) string {
	value, _ := p.store.Get(credentialKey(provider))
	return value
}

func (p *ProviderSettings) SetCredential(provider, credential string) error {
	return p.store.Set(credentialKey(provider), credential)
}

func credentialKey(provider string) string {
	return fmt.Sprintf(keyCredentialF, provider)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
