package config

import (
	"testing"
	"time"

	"github.com/fabiangomez1963/climaclick/internal/store"
)

// TestLoadDefaults pins the documented defaults, notably the 10 s
// per-attempt HTTP timeout the retry budget arithmetic assumes.
func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "HTTP_TIMEOUT", "FETCH_BUDGET", "WATCH_INTERVAL", "LAYER_DIR", "LAYER_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("expected a 10s HTTP timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.FetchBudget != 75*time.Second {
		t.Errorf("expected a 75s fetch budget, got %v", cfg.FetchBudget)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.WatchInterval != 0 {
		t.Errorf("expected the watcher disabled by default, got %v", cfg.WatchInterval)
	}
	if cfg.LayerName != "Weather Click" {
		t.Errorf("expected the default layer name, got %q", cfg.LayerName)
	}
}

// TestLoadReadsDurations parses duration overrides and rejects garbage.
func TestLoadReadsDurations(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "2s")
	t.Setenv("FETCH_BUDGET", "20s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPTimeout != 2*time.Second {
		t.Errorf("expected a 2s HTTP timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.FetchBudget != 20*time.Second {
		t.Errorf("expected a 20s fetch budget, got %v", cfg.FetchBudget)
	}

	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed duration")
	}
}

// TestProviderSettingsDefaults falls back to the default provider until a
// selection is stored.
func TestProviderSettingsDefaults(t *testing.T) {
	ps := NewProviderSettings(store.NewMemorySettings())

	if got := ps.Current(); got != DefaultProvider {
		t.Fatalf("expected default provider %q, got %q", DefaultProvider, got)
	}

	if err := ps.SetProvider("openmeteo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ps.Current(); got != "openmeteo" {
		t.Fatalf("expected openmeteo, got %q", got)
	}
}

// TestCredentialSlotsAreIndependent stores one key per provider so
// switching providers never loses a credential.
func TestCredentialSlotsAreIndependent(t *testing.T) {
	ps := NewProviderSettings(store.NewMemorySettings())

	if err := ps.SetCredential("openweathermap", "owm-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ps.SetCredential("tomorrowio", "tio-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ps.CredentialFor("openweathermap"); got != "owm-key" {
		t.Errorf("expected owm-key, got %q", got)
	}
	if got := ps.CredentialFor("tomorrowio"); got != "tio-key" {
		t.Errorf("expected tio-key, got %q", got)
	}
	if got := ps.CredentialFor("accuweather"); got != "" {
		t.Errorf("expected empty credential for an unset provider, got %q", got)
	}
}
