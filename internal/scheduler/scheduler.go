package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/fabiangomez1963/climaclick/internal/plugin"
)

// Watcher periodically re-fetches the last clicked point so the popup and
// layer keep up with current conditions.
type Watcher struct {
	scheduler *gocron.Scheduler
	plugin    *plugin.Plugin
	interval  time.Duration
}

// New creates a Watcher over the plugin's refresh hook.
func New(p *plugin.Plugin, interval time.Duration) *Watcher {
	return &Watcher{
		scheduler: gocron.NewScheduler(time.UTC),
		plugin:    p,
		interval:  interval,
	}
}

// Start schedules the periodic refresh and starts the underlying scheduler.
// A non-positive interval disables watch mode.
func (w *Watcher) Start() error {
	if w.interval <= 0 {
		log.Println("watcher: disabled; no interval configured")
		return nil
	}

	_, err := w.scheduler.Every(watchMinutes(w.interval)).Minutes().Do(func() {
		log.Println("watcher: refreshing last clicked point")

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		w.plugin.Refresh(ctx)
	})
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future refreshes.
func (w *Watcher) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

// watchMinutes floors the refresh interval at one minute, the finest step
// the scheduler runs at.
func watchMinutes(d time.Duration) int {
	minutes := int(d.Minutes())
	if minutes <= 0 {
		return 1
	}
	return minutes
}
