// Package tasks wires recurring jobs into the scheduler.
package tasks

import (
	"context"
	"time"

	"github.com/sportarr/sportarr/internal/config"
	"github.com/sportarr/sportarr/internal/scheduler"
	"github.com/sportarr/sportarr/internal/search"
)

// RegisterSearchAllTask registers the recurring batch search over all
// monitored events. A nil provider means no catalog is attached and the
// task is not registered.
func RegisterSearchAllTask(sched *scheduler.Scheduler, searcher *search.Service, provider search.EventProvider, cfg *config.SchedulerConfig) error {
	if !cfg.Enabled || provider == nil {
		return nil
	}

	interval := time.Duration(cfg.SearchAllIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "search-all",
		Name:        "Search All Monitored Events",
		Description: "Searches for missing monitored events and grabs the best available releases",
		Interval:    interval,
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			_, err := searcher.AutoSearchAll(ctx, provider)
			return err
		},
	})
}
