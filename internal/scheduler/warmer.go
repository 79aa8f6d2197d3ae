// Package scheduler runs the background cache warmer so the first
// request after a TTL expiry never pays the upstream latency.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher is the slice of the forecast service the warmer needs.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Warmer periodically refreshes every configured spot.
type Warmer struct {
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
	scheduler *gocron.Scheduler
}

// NewWarmer creates a warmer that runs every interval.
func NewWarmer(r Refresher, interval time.Duration, logger *slog.Logger) *Warmer {
	return &Warmer{
		refresher: r,
		interval:  interval,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the warm job and blocks until the context is
// cancelled. The first run fires immediately so a fresh process starts
// with a warm cache.
func (w *Warmer) Start(ctx context.Context) error {
	_, err := w.scheduler.Every(w.interval).StartImmediately().Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, w.interval)
		defer cancel()

		if err := w.refresher.RefreshAll(runCtx); err != nil {
			w.logger.Warn("cache warm cycle had failures", "error", err)
		}
	})
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	<-ctx.Done()
	w.scheduler.Stop()
	return nil
}
