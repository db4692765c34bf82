package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kelvins/geocoder"

	httpapi "github.com/fabiangomez1963/climaclick/internal/api/http"
	"github.com/fabiangomez1963/climaclick/internal/config"
	"github.com/fabiangomez1963/climaclick/internal/plugin"
	"github.com/fabiangomez1963/climaclick/internal/scheduler"
	"github.com/fabiangomez1963/climaclick/internal/store"
	"github.com/fabiangomez1963/climaclick/internal/weather"
	"github.com/fabiangomez1963/climaclick/internal/weather/providers"
)

func main() {
	// Load configuration (reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Settings persist to a file when configured, else stay in memory.
	var settingsStore store.SettingsStore
	if cfg.SettingsPath != "" {
		settingsStore = store.NewFileSettings(cfg.SettingsPath)
	} else {
		settingsStore = store.NewMemorySettings()
	}
	settings := config.NewProviderSettings(settingsStore)

	// Place-name lookup is optional; it activates with a geocoder key.
	if cfg.GeocoderAPIKey != "" {
		geocoder.ApiKey = cfg.GeocoderAPIKey
	}

	// Providers with resilience (backoff + circuit breaker), optionally
	// rate limited on the way out.
	registry := providers.DefaultRegistry(httpClient)
	if cfg.RateLimitRPS > 0 {
		for _, name := range registry.Names() {
			adapter, err := registry.Lookup(name)
			if err != nil {
				continue
			}
			registry.Register(weather.NewRateLimitedAdapter(adapter, cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
	}

	service := weather.NewService(registry, cfg.FetchBudget)

	// The web host stands in for a desktop map application: messages,
	// popups, and toolbar actions become HTTP-inspectable state.
	host := httpapi.NewWebHost()
	layers := store.NewGeoJSONLayerStore(cfg.LayerDir)

	plug := plugin.New(host, service, registry, settings, layers, cfg.LayerName)
	plug.InitGUI()
	defer plug.Unload()

	// Watch mode re-fetches the last clicked point periodically.
	watcher := scheduler.New(plug, cfg.WatchInterval)
	if err := watcher.Start(); err != nil {
		log.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "climaclick",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "climaclick",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, plug, host)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
