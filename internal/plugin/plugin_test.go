package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fabiangomez1963/climaclick/internal/config"
	"github.com/fabiangomez1963/climaclick/internal/store"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

type hostMessage struct {
	title, text string
	level       MessageLevel
}

// fakeHost records every host interaction for assertions.
type fakeHost struct {
	mu       sync.Mutex
	messages []hostMessage
	popups   []string
	actions  []string
	removed  int
}

func (h *fakeHost) ShowMessage(title, text string, level MessageLevel, durationSec int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, hostMessage{title, text, level})
}

func (h *fakeHost) ShowPopup(title, html string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.popups = append(h.popups, html)
}

func (h *fakeHost) AddToolbarAction(label string, onTrigger func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, label)
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removed++
	}
}

func (h *fakeHost) lastMessage() (hostMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return hostMessage{}, false
	}
	return h.messages[len(h.messages)-1], true
}

func (h *fakeHost) popupCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.popups)
}

// fakeAdapter yields a fixed record, optionally blocking until released.
type fakeAdapter struct {
	name     string
	needsKey bool
	entered  chan struct{}
	release  chan struct{}
	err      error
}

func (f *fakeAdapter) Name() string             { return f.name }
func (f *fakeAdapter) RequiresCredential() bool { return f.needsKey }

func (f *fakeAdapter) Fetch(ctx context.Context, coord weather.Coordinate, credential string, horizonHours int) (weather.ForecastResult, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return weather.ForecastResult{{
		Provider:         f.name,
		LocationName:     "Testville",
		Time:             time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		TimestampLabel:   weather.LabelNow,
		Description:      "Clear sky",
		IconSymbol:       "☀️",
		TemperatureC:     18.6,
		WindSpeedKmh:     36.0,
		WindSpeedKnots:   19.4,
		WindDirectionDeg: 230,
		GustKmh:          52.2,
	}}, nil
}

func newTestPlugin(t *testing.T, adapter weather.Adapter) (*Plugin, *fakeHost, *config.ProviderSettings, string) {
	t.Helper()

	registry := weather.NewRegistry()
	registry.Register(adapter)

	settings := config.NewProviderSettings(store.NewMemorySettings())
	if err := settings.SetProvider(adapter.Name()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	host := &fakeHost{}
	layerDir := t.TempDir()
	layers := store.NewGeoJSONLayerStore(layerDir)
	p := New(host, weather.NewService(registry, 0), registry, settings, layers, "Weather Click")
	return p, host, settings, layerDir
}

// TestHandleClickShowsPopupAndPersists runs the happy path end to end.
func TestHandleClickShowsPopupAndPersists(t *testing.T) {
	adapter := &fakeAdapter{name: "fake"}
	p, host, _, layerDir := newTestPlugin(t, adapter)

	result, err := p.HandleClick(context.Background(), 40.4168, -3.7038, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result))
	}

	if host.popupCount() != 1 {
		t.Fatalf("expected 1 popup, got %d", host.popupCount())
	}
	if !strings.Contains(host.popups[0], "Testville") {
		t.Errorf("popup missing the location:\n%s", host.popups[0])
	}

	// The click landed on the layer as one feature.
	raw, err := os.ReadFile(filepath.Join(layerDir, "weather-click.geojson"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"Testville"`, `"fake"`, `"temperature_c":18.6`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("layer file missing %s:\n%s", want, raw)
		}
	}
}

// TestHandleClickRejectsConcurrentFetch verifies the second click is turned
// away while the first fetch is still running.
func TestHandleClickRejectsConcurrentFetch(t *testing.T) {
	adapter := &fakeAdapter{
		name:    "fake",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p, host, _, _ := newTestPlugin(t, adapter)

	firstDone := make(chan error, 1)
	go func() {
		_, err := p.HandleClick(context.Background(), 1, 1, 0)
		firstDone <- err
	}()

	<-adapter.entered

	_, err := p.HandleClick(context.Background(), 2, 2, 0)
	if !errors.Is(err, ErrFetchInFlight) {
		t.Fatalf("expected ErrFetchInFlight, got %v", err)
	}
	if msg, ok := host.lastMessage(); !ok || !strings.Contains(msg.text, "already in progress") {
		t.Errorf("expected the busy message, got %+v", msg)
	}

	close(adapter.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first click failed: %v", err)
	}
}

// TestHandleClickFailureShowsMessage surfaces fetch failures on the message
// bar rather than a popup.
func TestHandleClickFailureShowsMessage(t *testing.T) {
	adapter := &fakeAdapter{
		name: "fake",
		err:  &weather.ProviderError{Provider: "fake", Kind: weather.FailTimeout, Message: "deadline"},
	}
	p, host, _, _ := newTestPlugin(t, adapter)

	_, err := p.HandleClick(context.Background(), 1, 1, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if host.popupCount() != 0 {
		t.Fatalf("expected no popup on failure, got %d", host.popupCount())
	}
	msg, ok := host.lastMessage()
	if !ok || msg.level != LevelError {
		t.Fatalf("expected an error-level message, got %+v", msg)
	}
	if !strings.Contains(msg.text, "network error") {
		t.Errorf("expected the network failure text, got %q", msg.text)
	}
}

// TestRefreshRepeatsLastClick re-fetches the remembered point and does
// nothing before the first click.
func TestRefreshRepeatsLastClick(t *testing.T) {
	adapter := &fakeAdapter{name: "fake"}
	p, host, _, _ := newTestPlugin(t, adapter)

	p.Refresh(context.Background())
	if host.popupCount() != 0 {
		t.Fatalf("expected no popup before the first click, got %d", host.popupCount())
	}

	if _, err := p.HandleClick(context.Background(), 5, 5, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Refresh(context.Background())

	if host.popupCount() != 2 {
		t.Fatalf("expected the refresh to show a second popup, got %d", host.popupCount())
	}
}

// TestActivateWarnsWithoutCredential blocks the tool arm-up message when
// the provider has no key configured.
func TestActivateWarnsWithoutCredential(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", needsKey: true}
	p, host, settings, _ := newTestPlugin(t, adapter)

	p.Activate()
	msg, ok := host.lastMessage()
	if !ok || msg.level != LevelWarning {
		t.Fatalf("expected a warning, got %+v", msg)
	}
	if !strings.Contains(msg.text, "API key") {
		t.Errorf("expected the credential warning, got %q", msg.text)
	}

	if err := settings.SetCredential("fake", "a-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Activate()
	msg, _ = host.lastMessage()
	if msg.level != LevelInfo || !strings.Contains(msg.text, "Click the map") {
		t.Errorf("expected the arm-up message, got %+v", msg)
	}
}

// TestConfigure validates the provider id and stores the credential.
func TestConfigure(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", needsKey: true}
	p, _, settings, _ := newTestPlugin(t, adapter)

	if err := p.Configure("nonexistent", ""); !errors.Is(err, weather.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	if err := p.Configure("fake", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := settings.Current(); got != "fake" {
		t.Errorf("expected the selection stored, got %q", got)
	}
	if got := settings.CredentialFor("fake"); got != "secret" {
		t.Errorf("expected the credential stored, got %q", got)
	}

	view := p.Configuration()
	if !view.HasCredential || !view.RequiresCredential {
		t.Errorf("unexpected configuration view: %+v", view)
	}
}

// TestInitGUIAndUnload installs two actions and removes both.
func TestInitGUIAndUnload(t *testing.T) {
	adapter := &fakeAdapter{name: "fake"}
	p, host, _, _ := newTestPlugin(t, adapter)

	p.InitGUI()
	if len(host.actions) != 2 {
		t.Fatalf("expected 2 toolbar actions, got %d", len(host.actions))
	}

	p.Unload()
	if host.removed != 2 {
		t.Fatalf("expected both actions removed, got %d", host.removed)
	}
}
